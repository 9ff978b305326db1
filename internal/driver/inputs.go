package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceExt is the extension of Structured Text files.
const SourceExt = ".st"

// ExpandInputs replaces every directory among paths by the *.st files below
// it, sorted for a deterministic order. Plain files are kept as given.
func ExpandInputs(paths []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		files, err := listSTFiles(p)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", p, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("input %q: no %s files", p, SourceExt)
		}
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

func listSTFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), SourceExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func baseName(p string) string {
	b := filepath.Base(p)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
