package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/diag"
	"plcc/internal/diagfmt"
	"plcc/internal/validation"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestManifestLayersOverDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.st"), "PROGRAM a END_PROGRAM")
	writeFile(t, filepath.Join(root, "src", "b.st"), "PROGRAM b END_PROGRAM")
	writeFile(t, filepath.Join(root, ManifestName), `
[package]
name = "demo"
files = ["src/*.st"]

[build]
output = "out/demo.so"
optimization = "aggressive"
use_init_array = false
linker = "cc"

[diagnostics]
narrowing = "error"
suppress = ["E067", "non_exhaustive_case"]
format = "clang"
`)
	nested := filepath.Join(root, "src")
	m, ok, err := LoadManifestFrom(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, m.Root)

	cfg := DefaultConfig()
	require.NoError(t, m.Apply(&cfg))
	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, []string{filepath.Join(root, "src", "a.st"), filepath.Join(root, "src", "b.st")}, cfg.Files)
	assert.Equal(t, filepath.Join(root, "out", "demo.so"), cfg.Output)
	assert.Equal(t, OptAggressive, cfg.Optimization)
	assert.False(t, cfg.UseInitArray)
	assert.Equal(t, "cc", cfg.Linker)
	assert.Equal(t, validation.LintError, cfg.Narrowing)
	assert.Equal(t, diagfmt.FormatClang, cfg.Format)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.True(t, p.Suppress[diag.NarrowingConversion])
	assert.True(t, p.Suppress[diag.NonExhaustiveCase])
}

func TestManifestRejectsUnknownKeys(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ManifestName)
	writeFile(t, path, `
[package]
name = "demo"
[build]
optimisation = "none"
`)
	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build.optimisation")
}

func TestManifestRequiresName(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ManifestName)
	writeFile(t, path, "[build]\nlinker = \"cc\"\n")
	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[package].name")
}

func TestManifestGlobWithoutMatches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "[package]\nname = \"x\"\nfiles = [\"src/*.st\"]\n")
	m, err := LoadManifest(filepath.Join(root, ManifestName))
	require.NoError(t, err)
	cfg := DefaultConfig()
	assert.ErrorContains(t, m.Apply(&cfg), "matches no file")
}

func TestNoManifest(t *testing.T) {
	_, ok, err := FindManifest(t.TempDir())
	require.NoError(t, err)
	// a plc.toml above the temp directory would be found; there is none
	assert.False(t, ok)
}

func TestOptLevels(t *testing.T) {
	for in, want := range map[string]OptLevel{"none": OptNone, "1": OptLess, "": OptDefault, "Aggressive": OptAggressive} {
		got, err := ParseOptLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOptLevel("fast")
	assert.Error(t, err)
	assert.Equal(t, "-O0", OptNone.Flag())
	assert.Equal(t, "-O3", OptAggressive.Flag())
	assert.Equal(t, "default", OptDefault.String())
}

func TestSuppressUnknownCode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Suppress = []string{"E999"}
	_, err := cfg.Policy()
	assert.Error(t, err)
}
