package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"plcc/internal/buildpipeline"
	"plcc/internal/diagfmt"
	"plcc/internal/driver"
	"plcc/internal/validation"
)

var log = commonlog.GetLogger("plcc.cli")

// stdinPath names standard input among the arguments and in diagnostics.
const stdinPath = "-"

func addCompileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "project name; the module and default output name")
	f.String("narrowing", "", "narrowing conversions lint (off|warning|error)")
	f.StringSlice("suppress", nil, "suppress diagnostics by code or name (E067, non_exhaustive_case)")
	f.Int("jobs", 0, "parallel workers (0 = one per CPU)")
	f.Bool("no-stdlib", false, "do not compile the bundled standard library")
	f.Bool("no-cache", false, "do not consult the diagnostics cache")
	f.String("cache-dir", "", "diagnostics cache directory")
}

func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "", "output path")
	f.Bool("ir", false, "emit LLVM IR instead of an object file")
	f.StringP("opt", "O", "", "optimization level (none|less|default|aggressive or 0-3)")
	f.String("linker", "", "link a shared library with this command, e.g. cc")
	f.String("target", "", "target triple")
	f.Bool("no-init-array", false, "register constructors in .ctors instead of .init_array")
	f.Bool("print-commands", false, "print external commands before running them")
	f.String("ui", "auto", "progress UI mode (auto|on|off)")
}

// loadConfig layers the manifest found from the working directory and the
// flags the user set over the defaults. Positional arguments replace the
// manifest's file list; "-" reads a source from standard input.
func loadConfig(cmd *cobra.Command, args []string) (driver.Config, []buildpipeline.Source, error) {
	cfg := driver.DefaultConfig()

	cwd, err := os.Getwd()
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	m, found, err := driver.LoadManifestFrom(cwd)
	if err != nil {
		return cfg, nil, err
	}
	if found {
		log.Infof("using manifest %s", m.Path)
		if err := m.Apply(&cfg); err != nil {
			return cfg, nil, err
		}
	}

	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, nil, err
	}

	var inline []buildpipeline.Source
	if len(args) > 0 {
		cfg.Files = nil
		for _, a := range args {
			if a != stdinPath {
				cfg.Files = append(cfg.Files, a)
				continue
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return cfg, nil, fmt.Errorf("failed to read standard input: %w", err)
			}
			inline = append(inline, buildpipeline.Source{Path: "<stdin>", Text: string(data)})
		}
	}
	if len(cfg.Files) == 0 && len(inline) == 0 {
		return cfg, nil, fmt.Errorf("no input files; pass .st files or directories, or add %s", driver.ManifestName)
	}
	return cfg, inline, nil
}

// applyFlags copies every flag the user set into cfg.
func applyFlags(cmd *cobra.Command, cfg *driver.Config) error {
	f := cmd.Flags()
	changed := func(name string) bool {
		return f.Lookup(name) != nil && f.Changed(name)
	}
	var err error
	if changed("name") {
		cfg.Name, _ = f.GetString("name")
	}
	if changed("narrowing") {
		s, _ := f.GetString("narrowing")
		if cfg.Narrowing, err = validation.ParseLint(s); err != nil {
			return err
		}
	}
	if changed("suppress") {
		extra, _ := f.GetStringSlice("suppress")
		cfg.Suppress = append(cfg.Suppress, extra...)
	}
	if changed("jobs") {
		cfg.Jobs, _ = f.GetInt("jobs")
	}
	if changed("no-stdlib") {
		cfg.NoStdlib, _ = f.GetBool("no-stdlib")
	}
	if changed("no-cache") {
		cfg.NoCache, _ = f.GetBool("no-cache")
	}
	if changed("cache-dir") {
		cfg.CacheDir, _ = f.GetString("cache-dir")
	}
	if changed("output") {
		out, _ := f.GetString("output")
		if cfg.Output, err = filepath.Abs(out); err != nil {
			return fmt.Errorf("output path: %w", err)
		}
	}
	if changed("opt") {
		s, _ := f.GetString("opt")
		if cfg.Optimization, err = driver.ParseOptLevel(s); err != nil {
			return err
		}
	}
	if changed("linker") {
		cfg.Linker, _ = f.GetString("linker")
	}
	if changed("target") {
		cfg.Target, _ = f.GetString("target")
	}
	if changed("no-init-array") {
		noInitArray, _ := f.GetBool("no-init-array")
		cfg.UseInitArray = !noInitArray
	}
	if changed("format") {
		s, _ := f.GetString("format")
		if cfg.Format, err = diagfmt.ParseFormat(s); err != nil {
			return err
		}
	}
	if changed("max-diagnostics") {
		cfg.MaxDiagnostics, _ = f.GetInt("max-diagnostics")
	}
	if changed("timings") {
		cfg.Timings, _ = f.GetBool("timings")
	}
	return nil
}

// newReporter builds the diagnostics reporter for cfg writing to stderr.
func newReporter(cmd *cobra.Command, cfg driver.Config) (diagfmt.Reporter, error) {
	colorMode, err := cmd.Flags().GetString("color")
	if err != nil {
		return nil, err
	}
	pathValue, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return nil, err
	}
	pathMode, err := diagfmt.ParsePathMode(pathValue)
	if err != nil {
		return nil, err
	}
	useColor, err := readColorMode(colorMode, os.Stderr)
	if err != nil {
		return nil, err
	}
	color.NoColor = !useColor

	opts := diagfmt.DefaultOpts()
	opts.Color = useColor
	opts.PathMode = pathMode
	opts.Max = cfg.MaxDiagnostics
	return diagfmt.New(cfg.Format, cmd.ErrOrStderr(), nil, opts)
}

func readColorMode(value string, out *os.File) (bool, error) {
	switch value {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
		return isTerminal(out) && os.Getenv("NO_COLOR") == "", nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
}
