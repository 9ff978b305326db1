package diag

import (
	"plcc/internal/source"
)

// Note is a secondary location with a label.
type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Node     uint64
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// Of builds a diagnostic with the code's default severity.
func Of(code Code, primary source.Span, msg string) Diagnostic {
	return New(code.DefaultSeverity(), code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// OnNode ties the diagnostic to an AST node for the per-node tie-break.
func (d Diagnostic) OnNode(id uint64) Diagnostic {
	d.Node = id
	return d
}
