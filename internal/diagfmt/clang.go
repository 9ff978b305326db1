package diagfmt

import (
	"bufio"
	"fmt"
	"io"

	"plcc/internal/diag"
	"plcc/internal/source"
)

// Clang prints one line per diagnostic in the compiler-style
// "path:line:col: severity: message [code]" form that editors parse.
type Clang struct {
	registry
	w    io.Writer
	opts Opts
}

func (c *Clang) Report(diags []diag.Diagnostic) error {
	bw := bufio.NewWriter(c.w)
	for _, d := range limit(diags, c.opts.Max) {
		fmt.Fprintf(bw, "%s%s: %s [%s]\n", c.location(d.Primary), d.Severity, d.Message, d.Code.ID())
		if !c.opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(bw, "%snote: %s\n", c.location(n.Span), n.Msg)
		}
	}
	return bw.Flush()
}

// location is "path:line:col: ", or "plcc: " for a span outside any file.
func (c *Clang) location(sp source.Span) string {
	f := c.fs.Get(sp.File)
	if sp.IsUndefined() || f == nil {
		return "plcc: "
	}
	start, _ := c.fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d: ", displayPath(f, c.fs, c.opts.PathMode), start.Line, start.Col)
}
