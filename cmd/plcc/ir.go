package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plcc/internal/buildpipeline"
	"plcc/internal/driver"
	"plcc/internal/source"
)

var irCmd = &cobra.Command{
	Use:   "ir [flags] [files or directories]",
	Short: "Print the LLVM IR of a project",
	Long:  "Compile a project and print its LLVM IR module, or write it to -o.",
	Args:  cobra.ArbitraryArgs,
	RunE:  irExecution,
}

func init() {
	addCompileFlags(irCmd)
	irCmd.Flags().StringP("output", "o", "", "write the IR to this path instead of stdout")
	irCmd.Flags().String("target", "", "target triple")
	irCmd.Flags().Bool("no-init-array", false, "register constructors in .ctors instead of .init_array")
}

func irExecution(cmd *cobra.Command, args []string) error {
	cfg, inline, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reporter, err := newReporter(cmd, cfg)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("output") {
		res, err := buildpipeline.Build(cmd.Context(), &buildpipeline.Request{
			Config:   cfg,
			Reporter: reporter,
			Inline:   inline,
			EmitIR:   true,
		})
		if reportErr := reportResult(cmd, reporter, cfg, res); reportErr != nil {
			return reportErr
		}
		return err
	}

	s := driver.NewSession(cfg, reporter)
	var ids []source.FileID
	for _, src := range inline {
		ids = append(ids, s.RegisterSource(src.Path, src.Text))
	}
	res, err := s.Compile(cmd.Context(), ids...)
	if err != nil {
		return err
	}
	if err := reportResult(cmd, reporter, cfg, buildpipeline.Result{Compile: res, Report: res.Timings}); err != nil {
		return err
	}
	if res.HasErrors() || res.Module == nil {
		return buildpipeline.ErrDiagnostics
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), res.Module.String())
	return err
}
