package driver

import (
	"fmt"
	"runtime"
	"strings"

	"plcc/internal/diag"
	"plcc/internal/diagfmt"
	"plcc/internal/validation"
)

// OptLevel is the optimisation level handed to the object compiler.
type OptLevel uint8

const (
	OptNone OptLevel = iota
	OptLess
	OptDefault
	OptAggressive
)

var optNames = [...]string{
	OptNone:       "none",
	OptLess:       "less",
	OptDefault:    "default",
	OptAggressive: "aggressive",
}

func (o OptLevel) String() string {
	if int(o) < len(optNames) {
		return optNames[o]
	}
	return fmt.Sprintf("OptLevel(%d)", o)
}

// Flag is the clang spelling, -O0 to -O3.
func (o OptLevel) Flag() string {
	return fmt.Sprintf("-O%d", min(int(o), int(OptAggressive)))
}

// ParseOptLevel accepts the level names and the digits 0 to 3.
func ParseOptLevel(s string) (OptLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "0":
		return OptNone, nil
	case "less", "1":
		return OptLess, nil
	case "", "default", "2":
		return OptDefault, nil
	case "aggressive", "3":
		return OptAggressive, nil
	}
	return OptDefault, fmt.Errorf("unknown optimization level %q (want none, less, default or aggressive)", s)
}

// Config is the effective configuration of one compiler run: defaults,
// then plc.toml, then command-line flags.
type Config struct {
	// Name is the project name. It names the module and its constructor.
	Name string
	// Files are the input paths; directories contribute every *.st file
	// below them.
	Files []string
	// Output is the artefact path; "" derives it from Name.
	Output       string
	Optimization OptLevel
	UseInitArray bool
	// Linker links objects into a shared library; "" stops at the object.
	Linker string
	// Target is the target triple, "" for the host.
	Target string

	Narrowing validation.Lint
	// Suppress lists diagnostic codes by ID ("E067") or name.
	Suppress []string
	Format   diagfmt.Format

	Jobs           int
	MaxDiagnostics int
	NoStdlib       bool

	// CacheDir overrides the diagnostics cache location; NoCache skips it.
	CacheDir string
	NoCache  bool
	Timings  bool
}

// DefaultConfig is the first configuration layer.
func DefaultConfig() Config {
	return Config{
		Optimization:   OptDefault,
		UseInitArray:   true,
		Narrowing:      validation.LintWarning,
		Format:         diagfmt.FormatCodespan,
		Jobs:           runtime.GOMAXPROCS(0),
		MaxDiagnostics: 100,
	}
}

// Policy turns the suppress list into a diagnostics policy.
func (c *Config) Policy() (diag.Policy, error) {
	p := diag.Policy{Suppress: map[diag.Code]bool{}}
	for _, s := range c.Suppress {
		code, err := diag.ParseCode(s)
		if err != nil {
			return diag.Policy{}, fmt.Errorf("suppress: %w", err)
		}
		p.Suppress[code] = true
	}
	return p, nil
}

// ModuleName is Name, or the first input's base name without extension.
func (c *Config) ModuleName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Files) > 0 {
		return baseName(c.Files[0])
	}
	return "plc"
}

// fingerprint lists every setting that changes the diagnostics of a run.
func (c *Config) fingerprint() string {
	return fmt.Sprintf("name=%s;narrowing=%s;suppress=%s;stdlib=%t",
		c.ModuleName(), c.Narrowing, strings.Join(c.Suppress, ","), !c.NoStdlib)
}
