package diagfmt

import (
	"encoding/json"
	"io"

	"plcc/internal/diag"
	"plcc/internal/source"
)

// LocationJSON is a span with optional line and column positions.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type NoteJSON struct {
	Message  string        `json:"message"`
	Location *LocationJSON `json:"location,omitempty"`
}

type DiagnosticJSON struct {
	Severity string        `json:"severity"`
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Message  string        `json:"message"`
	Location *LocationJSON `json:"location,omitempty"`
	Notes    []NoteJSON    `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON document.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
}

// JSONReporter writes one indented document per Report call.
type JSONReporter struct {
	registry
	w    io.Writer
	opts Opts
}

func (r *JSONReporter) Report(diags []diag.Diagnostic) error {
	return JSON(r.w, diags, r.fs, r.opts)
}

// makeLocation is nil for spans outside every registered file.
func makeLocation(span source.Span, fs *source.FileSet, mode PathMode) *LocationJSON {
	f := fs.Get(span.File)
	if f == nil || span.IsUndefined() {
		return nil
	}
	start, end := fs.Resolve(span)
	return &LocationJSON{
		File:      displayPath(f, fs, mode),
		StartByte: span.Start,
		EndByte:   span.End,
		StartLine: start.Line,
		StartCol:  start.Col,
		EndLine:   end.Line,
		EndCol:    end.Col,
	}
}

// BuildDiagnosticsOutput forms the JSON structure without serialising it.
func BuildDiagnosticsOutput(diags []diag.Diagnostic, fs *source.FileSet, opts Opts) DiagnosticsOutput {
	shown := limit(diags, opts.Max)
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, len(shown))}
	for i := range shown {
		d := &shown[i]
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Name:     d.Code.Name(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, fs, opts.PathMode),
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: makeLocation(n.Span, fs, opts.PathMode)})
			}
		}
		switch d.Severity {
		case diag.SevError:
			out.Errors++
		case diag.SevWarning:
			out.Warnings++
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON writes diags as an indented JSON document.
func JSON(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts Opts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(diags, fs, opts))
}
