package codegen

import (
	"errors"
	"fmt"
	"runtime/debug"

	"plcc/internal/ast"
	"plcc/internal/source"
)

// BugReportURL is printed with every internal error.
const BugReportURL = "https://github.com/plcc/plcc/issues/new"

// InternalError is a broken invariant of the compiler itself, never a
// mistake in the program being compiled.
type InternalError struct {
	Msg   string
	Node  ast.ID
	Span  source.Span
	// Stack is set for panics that did not start as an InternalError.
	Stack []byte
}

func (e *InternalError) Error() string {
	msg := "internal compiler error: " + e.Msg
	if !e.Span.IsUndefined() {
		msg += " at " + e.Span.String()
	}
	return msg
}

// Prompt is the text shown to the user in place of a diagnostic.
func (e *InternalError) Prompt() string {
	return e.Error() + "\n\nThis is a bug in plcc. Please report it at " + BugReportURL +
		"\nand attach the sources that trigger it."
}

func internalf(n ast.Node, format string, args ...any) *InternalError {
	ie := &InternalError{Msg: fmt.Sprintf(format, args...), Span: source.Undefined()}
	if n != nil {
		ie.Node = n.GetID()
		ie.Span = n.GetSpan()
	}
	return ie
}

// Recovered turns any recovered panic value into an internal error,
// keeping the stack of values that were not raised as one.
func Recovered(r any) *InternalError {
	if ie, ok := AsInternal(r); ok {
		return ie
	}
	return &InternalError{Msg: fmt.Sprint(r), Span: source.Undefined(), Stack: debug.Stack()}
}

// AsInternal extracts an *InternalError from a recovered panic value or
// an error chain.
func AsInternal(v any) (*InternalError, bool) {
	switch x := v.(type) {
	case *InternalError:
		return x, true
	case error:
		var ie *InternalError
		if errors.As(x, &ie) {
			return ie, true
		}
	}
	return nil, false
}
