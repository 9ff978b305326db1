package main

import (
	"github.com/spf13/cobra"

	"plcc/internal/buildpipeline"
	"plcc/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [files or directories]",
	Short: "Report diagnostics without generating code",
	Long: `Run every analysis phase and report diagnostics. Results are cached by
the hash of the inputs and the configuration, so an unchanged project is
answered without analysing it again.`,
	Args: cobra.ArbitraryArgs,
	RunE: checkExecution,
}

func init() {
	addCompileFlags(checkCmd)
}

func checkExecution(cmd *cobra.Command, args []string) error {
	cfg, inline, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reporter, err := newReporter(cmd, cfg)
	if err != nil {
		return err
	}
	req := &buildpipeline.Request{Config: cfg, Reporter: reporter, Inline: inline}
	if !cfg.NoCache {
		cache, err := driver.OpenDiskCache(cfg.CacheDir)
		if err != nil {
			log.Warningf("running without the diagnostics cache: %s", err)
		} else {
			req.Cache = cache
		}
	}

	res, err := buildpipeline.Check(cmd.Context(), req)
	if reportErr := reportResult(cmd, reporter, cfg, res); reportErr != nil {
		return reportErr
	}
	return err
}
