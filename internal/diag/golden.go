package diag

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"plcc/internal/source"
)

// Listing renders diags one per line as
// "<severity> <code> <path>:<line>:<col> <message>", ordered by position, so
// tests can compare a whole run against an expected listing. Paths are
// relative to the file set's base directory. Spans inside the bundled
// library are left out; notes follow as "note" lines when withNotes is set.
func Listing(diags []Diagnostic, fs *source.FileSet, withNotes bool) string {
	type entry struct {
		path      string
		pos       source.LineCol
		sev, code string
		msg       string
	}
	var entries []entry
	add := func(sp source.Span, sev, code, msg string) {
		f := fs.Get(sp.File)
		if f == nil || f.Flags&source.FileBuiltin != 0 {
			return
		}
		start, _ := fs.Resolve(sp)
		path := strings.TrimPrefix(filepath.ToSlash(f.FormatPath("relative", fs.BaseDir())), "./")
		entries = append(entries, entry{path: path, pos: start, sev: sev, code: code, msg: strings.Join(strings.Fields(msg), " ")})
	}
	for _, d := range diags {
		add(d.Primary, d.Severity.String(), d.Code.ID(), d.Message)
		if withNotes {
			for _, n := range d.Notes {
				add(n.Span, "note", d.Code.ID(), n.Msg)
			}
		}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Or(
			strings.Compare(a.path, b.path),
			cmp.Compare(a.pos.Line, b.pos.Line),
			cmp.Compare(a.pos.Col, b.pos.Col),
			strings.Compare(a.sev, b.sev),
			strings.Compare(a.code, b.code),
			strings.Compare(a.msg, b.msg),
		)
	})
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s %s %s:%d:%d %s", e.sev, e.code, e.path, e.pos.Line, e.pos.Col, e.msg)
	}
	return strings.Join(lines, "\n")
}
