package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegisterAssignsNonZeroIDs(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Register("a.st", "PROGRAM a END_PROGRAM")
	id2 := fs.Register("b.st", "PROGRAM b END_PROGRAM")
	if id1 == NoFileID || id2 == NoFileID {
		t.Fatalf("expected non-zero ids, got %d and %d", id1, id2)
	}
	if id2 <= id1 {
		t.Fatalf("ids must be monotonic: %d then %d", id1, id2)
	}
	if got := fs.Get(id1).Path; got != "a.st" {
		t.Errorf("unexpected path %q", got)
	}
	if fs.Get(NoFileID) != nil {
		t.Errorf("NoFileID must not resolve to a file")
	}
}

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("test.st", []byte("hello world"), 0)
	id2 := fs.Add("test.st", []byte("hello universe"), 0)

	latest, ok := fs.GetLatest("test.st")
	if !ok || latest != id2 {
		t.Fatalf("expected latest id %d, got %d (ok=%v)", id2, latest, ok)
	}
	if string(fs.Get(id1).Content) != "hello world" {
		t.Errorf("old version must stay readable")
	}
	if fs.Len() != 2 {
		t.Errorf("expected 2 files, got %d", fs.Len())
	}
	if files := fs.Files(); len(files) != 1 || files[0].ID != id2 {
		t.Errorf("Files() must list only the latest version")
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.Register("x.st", "x := 1;\ny := 2;\n")

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{7, LineCol{1, 8}},
		{8, LineCol{2, 1}},
		{13, LineCol{2, 6}},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if start != tt.want {
			t.Errorf("offset %d: want %+v, got %+v", tt.off, tt.want, start)
		}
	}
}

func TestCRLFAndBOMNormalization(t *testing.T) {
	fs := NewFileSet()
	id := fs.Register("w.st", "\xEF\xBB\xBFa\r\nb")
	f := fs.Get(id)
	if string(f.Content) != "a\nb" {
		t.Fatalf("unexpected content %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Errorf("expected BOM and CRLF flags, got %b", f.Flags)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.Register("l.st", "first\nsecond\nthird"))
	for i, want := range []string{"first", "second", "third"} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Errorf("line %d: want %q, got %q", i+1, want, got)
		}
	}
	if got := f.GetLine(4); got != "" {
		t.Errorf("line past end must be empty, got %q", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.st")
	if err := os.WriteFile(path, []byte("PROGRAM main\r\nEND_PROGRAM\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "PROGRAM main\nEND_PROGRAM\n" {
		t.Errorf("unexpected content %q", f.Content)
	}
	if _, err := fs.Load(filepath.Join(dir, "missing.st")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
