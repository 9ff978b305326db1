package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"plcc/internal/diagfmt"
	"plcc/internal/validation"
)

// ManifestName is the project file looked up from the working directory.
const ManifestName = "plc.toml"

// Manifest is a decoded plc.toml.
type Manifest struct {
	Path   string
	Root   string
	Config manifestConfig
}

type manifestConfig struct {
	Package     packageConfig     `toml:"package"`
	Build       buildConfig       `toml:"build"`
	Diagnostics diagnosticsConfig `toml:"diagnostics"`
}

type packageConfig struct {
	Name  string   `toml:"name"`
	Files []string `toml:"files"`
}

type buildConfig struct {
	Output       string `toml:"output"`
	Optimization string `toml:"optimization"`
	UseInitArray *bool  `toml:"use_init_array"`
	Linker       string `toml:"linker"`
	Target       string `toml:"target"`
}

type diagnosticsConfig struct {
	Narrowing string   `toml:"narrowing"`
	Suppress  []string `toml:"suppress"`
	Format    string   `toml:"format"`
}

// FindManifest walks up from startDir to locate plc.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest decodes path. Keys the compiler does not know are errors.
func LoadManifest(path string) (*Manifest, error) {
	var cfg manifestConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, fmt.Errorf("%s: missing [package].name", path)
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// LoadManifestFrom finds and loads the manifest above startDir. ok is false
// when there is none.
func LoadManifestFrom(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err = LoadManifest(path)
	return m, true, err
}

// Apply layers the manifest over cfg. File patterns are relative to the
// manifest directory.
func (m *Manifest) Apply(cfg *Config) error {
	c := m.Config
	cfg.Name = c.Package.Name
	if len(c.Package.Files) > 0 {
		files, err := m.expand(c.Package.Files)
		if err != nil {
			return err
		}
		cfg.Files = files
	}
	if c.Build.Output != "" {
		cfg.Output = m.rooted(c.Build.Output)
	}
	if c.Build.Optimization != "" {
		o, err := ParseOptLevel(c.Build.Optimization)
		if err != nil {
			return fmt.Errorf("%s: [build].optimization: %w", m.Path, err)
		}
		cfg.Optimization = o
	}
	if c.Build.UseInitArray != nil {
		cfg.UseInitArray = *c.Build.UseInitArray
	}
	if c.Build.Linker != "" {
		cfg.Linker = c.Build.Linker
	}
	if c.Build.Target != "" {
		cfg.Target = c.Build.Target
	}
	if c.Diagnostics.Narrowing != "" {
		l, err := validation.ParseLint(c.Diagnostics.Narrowing)
		if err != nil {
			return fmt.Errorf("%s: [diagnostics].narrowing: %w", m.Path, err)
		}
		cfg.Narrowing = l
	}
	cfg.Suppress = append(cfg.Suppress, c.Diagnostics.Suppress...)
	if c.Diagnostics.Format != "" {
		f, err := diagfmt.ParseFormat(c.Diagnostics.Format)
		if err != nil {
			return fmt.Errorf("%s: [diagnostics].format: %w", m.Path, err)
		}
		cfg.Format = f
	}
	return nil
}

func (m *Manifest) rooted(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}

// expand resolves glob patterns; a pattern that matches nothing is an
// error so that typos do not silently drop sources.
func (m *Manifest) expand(patterns []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, pat := range patterns {
		matches, err := filepath.Glob(m.rooted(pat))
		if err != nil {
			return nil, fmt.Errorf("%s: [package].files: %w", m.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: [package].files: %q matches no file", m.Path, pat)
		}
		sort.Strings(matches)
		for _, f := range matches {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}
