package diagfmt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"plcc/internal/diag"
	"plcc/internal/source"
)

const tabWidth = 4

// Codespan renders diagnostics with the offending source lines and a caret
// underline, rustc style:
//
//	error[E048]: could not resolve reference to y
//	 --> main.st:3:6
//	  |
//	3 | x := y;
//	  |      ^
type Codespan struct {
	registry
	w    io.Writer
	opts Opts
}

type palette struct {
	err, warn, info, note, gutter, bold *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		note:   mk(color.FgGreen, color.Bold),
		gutter: mk(color.FgBlue, color.Bold),
		bold:   mk(color.Bold),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

func (c *Codespan) Report(diags []diag.Diagnostic) error {
	bw := bufio.NewWriter(c.w)
	p := newPalette(c.opts.Color)
	shown := limit(diags, c.opts.Max)
	for i := range shown {
		c.render(bw, p, &shown[i])
	}
	if s := Summary(shown); s != "" {
		fmt.Fprintf(bw, "%s\n", p.bold.Sprint(s))
	}
	return bw.Flush()
}

func (c *Codespan) render(w io.Writer, p palette, d *diag.Diagnostic) {
	sev := p.severity(d.Severity)
	fmt.Fprintf(w, "%s%s\n", sev.Sprintf("%s[%s]", d.Severity, d.Code.ID()), p.bold.Sprintf(": %s", d.Message))

	width := c.gutterWidth(d)
	c.snippet(w, p, sev, d.Primary, "", width, "-->")
	if c.opts.ShowNotes {
		for _, n := range d.Notes {
			if n.Span.IsUndefined() || c.fs.Get(n.Span.File) == nil {
				fmt.Fprintf(w, "%s %s %s\n", strings.Repeat(" ", width), p.gutter.Sprint("="), p.note.Sprint("note: ")+n.Msg)
				continue
			}
			c.snippet(w, p, p.note, n.Span, n.Msg, width, ":::")
		}
	}
	fmt.Fprintln(w)
}

// gutterWidth fits the largest line number the diagnostic prints.
func (c *Codespan) gutterWidth(d *diag.Diagnostic) int {
	width := 1
	grow := func(sp source.Span) {
		if c.fs.Get(sp.File) == nil {
			return
		}
		_, end := c.fs.Resolve(sp)
		last := int(end.Line) + c.opts.Context
		width = max(width, len(strconv.Itoa(last)))
	}
	grow(d.Primary)
	for _, n := range d.Notes {
		grow(n.Span)
	}
	return width
}

// snippet prints the location header, the context lines and the underline
// of the first line of sp.
func (c *Codespan) snippet(w io.Writer, p palette, mark *color.Color, sp source.Span, label string, width int, arrow string) {
	f := c.fs.Get(sp.File)
	if sp.IsUndefined() || f == nil {
		return
	}
	start, end := c.fs.Resolve(sp)
	pad := strings.Repeat(" ", width)
	bar := p.gutter.Sprint("|")
	fmt.Fprintf(w, "%s%s %s:%d:%d\n", pad, p.gutter.Sprint(arrow), displayPath(f, c.fs, c.opts.PathMode), start.Line, start.Col)
	fmt.Fprintf(w, "%s %s\n", pad, bar)

	first := max(1, int(start.Line)-c.opts.Context)
	for ln := first; ln < int(start.Line); ln++ {
		c.line(w, p, f, ln, width)
	}
	text := c.line(w, p, f, int(start.Line), width)

	from := int(start.Col) - 1
	to := len(text)
	if end.Line == start.Line {
		to = int(end.Col) - 1
	}
	from = min(max(from, 0), len(text))
	to = min(max(to, from), len(text))
	lead := displayWidth(text[:from])
	carets := max(1, displayWidth(text[from:to]))
	underline := strings.Repeat("^", carets)
	if end.Line > start.Line {
		underline += "..."
	}
	if label != "" {
		underline += " " + label
	}
	fmt.Fprintf(w, "%s %s %s%s\n", pad, bar, strings.Repeat(" ", lead), mark.Sprint(underline))

	for ln := int(start.Line) + 1; ln <= int(start.Line)+c.opts.Context; ln++ {
		if f.GetLine(uint32(ln)) == "" && ln > int(end.Line) {
			break
		}
		c.line(w, p, f, ln, width)
	}
}

func (c *Codespan) line(w io.Writer, p palette, f *source.File, ln, width int) string {
	text := f.GetLine(uint32(ln))
	num := fmt.Sprintf("%*d", width, ln)
	fmt.Fprintf(w, "%s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), expandTabs(text))
	return text
}

// displayWidth is the terminal width of s with tabs expanded.
func displayWidth(s string) int {
	return runewidth.StringWidth(expandTabs(s))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
