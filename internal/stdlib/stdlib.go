// Package stdlib ships the IEC 61131-3 declarations every program can use
// without importing anything: runtime functions declared {external} and
// generic over their type parameter, and a handful of standard function
// blocks written in Structured Text.
//
// A generic external such as SQRT<T: ANY_REAL> is specialised per call site
// into SQRT__REAL, SQRT__LREAL and so on; those are the symbols the runtime
// library exports.
package stdlib

import (
	"embed"
	"io/fs"
	"path"
	"sort"

	"plcc/internal/source"
)

// Prefix marks stdlib paths in diagnostics.
const Prefix = "<stdlib>/"

//go:embed lib/*.st
var lib embed.FS

// File is one embedded declaration file.
type File struct {
	Path    string
	Content []byte
}

// Files returns the embedded files sorted by path.
func Files() []File {
	entries, err := fs.ReadDir(lib, "lib")
	if err != nil {
		panic(err)
	}
	out := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".st" {
			continue
		}
		content, err := lib.ReadFile(path.Join("lib", e.Name()))
		if err != nil {
			panic(err)
		}
		out = append(out, File{Path: Prefix + e.Name(), Content: content})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Register adds every embedded file to fileSet as a builtin source.
func Register(fileSet *source.FileSet) []source.FileID {
	files := Files()
	ids := make([]source.FileID, 0, len(files))
	for _, f := range files {
		ids = append(ids, fileSet.Add(f.Path, f.Content, source.FileVirtual|source.FileBuiltin))
	}
	return ids
}

// IsStdlib reports whether p names an embedded file.
func IsStdlib(p string) bool {
	return len(p) >= len(Prefix) && p[:len(Prefix)] == Prefix
}
