package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plcc/internal/buildpipeline"
	"plcc/internal/diagfmt"
	"plcc/internal/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [files or directories]",
	Short: "Compile a project into an object file or shared library",
	Long: `Compile a Structured Text project. Inputs are .st files or directories;
without any, the files listed in plc.toml are compiled. The artefact is an
object file, textual IR with --ir, or a shared library with --linker.`,
	Args: cobra.ArbitraryArgs,
	RunE: buildExecution,
}

func init() {
	addCompileFlags(buildCmd)
	addBuildFlags(buildCmd)
}

func buildExecution(cmd *cobra.Command, args []string) error {
	emitIR, err := cmd.Flags().GetBool("ir")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	cfg, inline, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reporter, err := newReporter(cmd, cfg)
	if err != nil {
		return err
	}

	req := &buildpipeline.Request{
		Config:   cfg,
		Reporter: reporter,
		Inline:   inline,
		EmitIR:   emitIR,
		Toolchain: buildpipeline.Toolchain{
			PrintCommands: printCommands,
			Stdout:        cmd.OutOrStdout(),
		},
	}

	var res buildpipeline.Result
	if shouldUseTUI(uiModeValue) && cfg.Format != diagfmt.FormatJSON {
		files := progressFiles(cfg, inline)
		res, err = runBuildWithUI(cmd.Context(), "building "+cfg.ModuleName(), files, req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), req)
	}
	if reportErr := reportResult(cmd, reporter, cfg, res); reportErr != nil {
		return reportErr
	}
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", res.OutputPath)
	}
	return nil
}

// reportResult renders the diagnostics of a run and, with --timings, its
// phase timings.
func reportResult(cmd *cobra.Command, reporter diagfmt.Reporter, cfg driver.Config, res buildpipeline.Result) error {
	if res.Compile != nil {
		if res.Compile.Cached {
			log.Infof("diagnostics served from cache")
		}
		if err := reporter.Report(res.Compile.Diagnostics); err != nil {
			return fmt.Errorf("failed to report diagnostics: %w", err)
		}
	}
	if cfg.Timings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
		printPhaseTimings(cmd.ErrOrStderr(), res.Report)
	}
	return nil
}

func progressFiles(cfg driver.Config, inline []buildpipeline.Source) []string {
	paths, err := driver.ExpandInputs(cfg.Files)
	if err != nil {
		paths = nil
	}
	for _, src := range inline {
		paths = append(paths, src.Path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	return buildpipeline.ProgressFiles(paths, cwd)
}
