package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"plcc/internal/ast"
	"plcc/internal/source"
)

// CheckSpans runs a minimal set of span invariants on a parsed unit:
// POU and global block spans are non-empty, point into sf and stay
// within its content; a POU's name lies inside the POU.
func CheckSpans(u *ast.CompilationUnit, sf *source.File) error {
	if u == nil || sf == nil {
		return fmt.Errorf("nil unit or file")
	}
	size, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	check := func(what string, sp source.Span) error {
		if sp.End <= sp.Start {
			return fmt.Errorf("%s: empty span %v", what, sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("%s: span file mismatch: got=%d want=%d", what, sp.File, sf.ID)
		}
		if sp.End > size {
			return fmt.Errorf("%s: span end beyond content: %d > %d", what, sp.End, size)
		}
		return nil
	}
	for _, p := range u.Pous {
		if err := check("POU "+p.Name, p.Span); err != nil {
			return err
		}
		if !p.Span.Contains(p.NameSpan) {
			return fmt.Errorf("POU %s: name %v outside of %v", p.Name, p.NameSpan, p.Span)
		}
	}
	for _, b := range u.GlobalBlocks {
		if err := check("global block", b.Span); err != nil {
			return err
		}
	}
	return nil
}
