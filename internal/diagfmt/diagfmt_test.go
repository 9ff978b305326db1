package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"plcc/internal/diag"
	"plcc/internal/source"
)

const program = "PROGRAM p\nx := y;\nEND_PROGRAM\n"

func unresolved(id source.FileID) diag.Diagnostic {
	return diag.Of(diag.UnresolvedReference, source.Span{File: id, Start: 15, End: 16}, "could not resolve reference to y")
}

func render(t *testing.T, format Format, opts Opts, build func(r Reporter) []diag.Diagnostic) string {
	t.Helper()
	var buf bytes.Buffer
	r, err := New(format, &buf, nil, opts)
	if err != nil {
		t.Fatalf("New(%q): %v", format, err)
	}
	if err := r.Report(build(r)); err != nil {
		t.Fatalf("Report: %v", err)
	}
	return buf.String()
}

func TestClangLine(t *testing.T) {
	out := render(t, FormatClang, Opts{PathMode: PathModeBasename, ShowNotes: true}, func(r Reporter) []diag.Diagnostic {
		id := r.Register("/work/src/test.st", program)
		d := unresolved(id).WithNote(source.Span{File: id, Start: 0, End: 7}, "inside this program")
		return []diag.Diagnostic{d, diag.NewError(diag.ProjectConfig, source.Undefined(), "no input files")}
	})
	want := "test.st:2:6: error: could not resolve reference to y [E048]\n" +
		"test.st:1:1: note: inside this program\n" +
		"plcc: error: no input files [" + diag.ProjectConfig.ID() + "]\n"
	if out != want {
		t.Errorf("clang output mismatch\nwant:\n%s\ngot:\n%s", want, out)
	}
}

func TestCodespanSnippet(t *testing.T) {
	out := render(t, FormatCodespan, Opts{PathMode: PathModeBasename, ShowNotes: true}, func(r Reporter) []diag.Diagnostic {
		id := r.Register("/work/src/test.st", program)
		return []diag.Diagnostic{unresolved(id).WithNote(source.Undefined(), "declare y in a VAR block")}
	})
	want := strings.Join([]string{
		"error[E048]: could not resolve reference to y",
		" --> test.st:2:6",
		"  |",
		"2 | x := y;",
		"  |      ^",
		"  = note: declare y in a VAR block",
		"",
		"1 error",
		"",
	}, "\n")
	if out != want {
		t.Errorf("codespan output mismatch\nwant:\n%s\ngot:\n%s", want, out)
	}
}

func TestCodespanContextAndColor(t *testing.T) {
	out := render(t, FormatCodespan, Opts{Color: true, Context: 1, PathMode: PathModeBasename}, func(r Reporter) []diag.Diagnostic {
		id := r.Register("test.st", program)
		return []diag.Diagnostic{unresolved(id)}
	})
	for _, want := range []string{"PROGRAM p", "END_PROGRAM", "\x1b["} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPathModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/test.st"},
		{"Relative path", PathModeRelative, "src/test.st:2:6"},
		{"Basename only", PathModeBasename, " test.st:2:6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			fs.SetBaseDir("/home/user/project")
			id := fs.Register("/home/user/project/src/test.st", program)
			var buf bytes.Buffer
			r, err := New(FormatCodespan, &buf, fs, Opts{PathMode: tt.mode})
			if err != nil {
				t.Fatal(err)
			}
			if err := r.Report([]diag.Diagnostic{unresolved(id)}); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("expected %q in output:\n%s", tt.contains, buf.String())
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	out := render(t, FormatJSON, Opts{PathMode: PathModeBasename, ShowNotes: true}, func(r Reporter) []diag.Diagnostic {
		id := r.Register("test.st", program)
		return []diag.Diagnostic{
			unresolved(id),
			diag.New(diag.SevWarning, diag.UnresolvedReference, source.Undefined(), "detached"),
		}
	})
	var doc DiagnosticsOutput
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if doc.Count != 2 || doc.Errors != 1 || doc.Warnings != 1 {
		t.Fatalf("counts = %d/%d/%d", doc.Count, doc.Errors, doc.Warnings)
	}
	first := doc.Diagnostics[0]
	if first.Code != "E048" || first.Name != "unresolved_reference" || first.Severity != "error" {
		t.Errorf("unexpected header %+v", first)
	}
	if first.Location == nil || first.Location.File != "test.st" || first.Location.StartLine != 2 || first.Location.StartCol != 6 {
		t.Errorf("unexpected location %+v", first.Location)
	}
	if doc.Diagnostics[1].Location != nil {
		t.Errorf("undefined span should have no location")
	}
}

func TestNullDiscards(t *testing.T) {
	n := NewNull()
	id := n.Register("a.st", program)
	if id == source.NoFileID {
		t.Fatal("Register returned no id")
	}
	if err := n.Report([]diag.Diagnostic{unresolved(id)}); err != nil {
		t.Fatal(err)
	}
	if n.Files().Get(id) == nil {
		t.Fatal("registered file is missing")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCodespan, "Clang": FormatClang, "json": FormatJSON, " null ": FormatNull} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("sarif"); err == nil {
		t.Error("expected an error for sarif")
	}
	if _, err := ParsePathMode("nowhere"); err == nil {
		t.Error("expected an error for an unknown path mode")
	}
}

func TestDisplayWidth(t *testing.T) {
	if w := displayWidth("日本"); w != 4 {
		t.Errorf("displayWidth(wide) = %d", w)
	}
	if w := displayWidth("\tx"); w != tabWidth+1 {
		t.Errorf("displayWidth(tab) = %d", w)
	}
	if s := Summary(nil); s != "" {
		t.Errorf("Summary(nil) = %q", s)
	}
}
