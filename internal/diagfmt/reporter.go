// Package diagfmt renders diagnostics for humans and tools. A Reporter owns
// the registry of the sources it may quote; the compiler registers every
// input before analysis and reports the final, policy-adjusted list once.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"plcc/internal/diag"
	"plcc/internal/source"
)

// Reporter is the diagnostician plug-in.
type Reporter interface {
	// Register makes a source available for rendering.
	Register(path, src string) source.FileID
	// Report renders diags.
	Report(diags []diag.Diagnostic) error
	// Files is the registry backing Register.
	Files() *source.FileSet
}

// Format names a reporter implementation.
type Format string

const (
	FormatCodespan Format = "codespan"
	FormatClang    Format = "clang"
	FormatJSON     Format = "json"
	FormatNull     Format = "null"
)

// Formats lists the accepted format names.
func Formats() []Format {
	return []Format{FormatCodespan, FormatClang, FormatJSON, FormatNull}
}

// ParseFormat resolves a format name; the empty string is codespan.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCodespan, nil
	case FormatCodespan, FormatClang, FormatJSON, FormatNull:
		return f, nil
	}
	return "", fmt.Errorf("unknown diagnostics format %q (want codespan, clang, json or null)", s)
}

// New builds the reporter for format writing to w. A nil fs gets a fresh
// registry.
func New(format Format, w io.Writer, fs *source.FileSet, opts Opts) (Reporter, error) {
	if fs == nil {
		fs = source.NewFileSet()
	}
	base := registry{fs: fs}
	switch format {
	case FormatCodespan, "":
		return &Codespan{registry: base, w: w, opts: opts}, nil
	case FormatClang:
		return &Clang{registry: base, w: w, opts: opts}, nil
	case FormatJSON:
		return &JSONReporter{registry: base, w: w, opts: opts}, nil
	case FormatNull:
		return &Null{registry: base}, nil
	}
	return nil, fmt.Errorf("unknown diagnostics format %q", format)
}

type registry struct {
	fs *source.FileSet
}

func (r registry) Register(path, src string) source.FileID {
	return r.fs.Register(path, src)
}

func (r registry) Files() *source.FileSet {
	return r.fs
}

// Null discards every diagnostic.
type Null struct {
	registry
}

// NewNull returns a Null reporter over a fresh registry.
func NewNull() *Null {
	return &Null{registry: registry{fs: source.NewFileSet()}}
}

func (*Null) Report([]diag.Diagnostic) error { return nil }

func limit(diags []diag.Diagnostic, max int) []diag.Diagnostic {
	if max > 0 && max < len(diags) {
		return diags[:max]
	}
	return diags
}

// Summary is the trailing "N errors, M warnings" line; empty when clean.
func Summary(diags []diag.Diagnostic) string {
	var errs, warns int
	for i := range diags {
		switch diags[i].Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	var parts []string
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warns > 0 {
		parts = append(parts, plural(warns, "warning"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
