// Package main implements the plcc CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"plcc/internal/buildpipeline"
	"plcc/internal/codegen"
	"plcc/internal/prof"
	"plcc/internal/version"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitInternal = 101
)

// profiling is the profile session of this run, stopped when it ends.
var profiling *prof.Session

var rootCmd = &cobra.Command{
	Use:   "plcc [flags] [files or directories]",
	Short: "IEC 61131-3 Structured Text compiler",
	Long: `plcc compiles Structured Text projects into LLVM IR, object files or
shared libraries. Without a subcommand it builds.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := configureLogging(cmd); err != nil {
			return err
		}
		return startProfiling(cmd)
	},
	RunE: buildExecution,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(irCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "log more; repeat for more detail")
	rootCmd.PersistentFlags().String("log", "", "write the log to this file instead of stderr")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show (0 = all)")
	rootCmd.PersistentFlags().String("format", "", "diagnostics format (codespan|clang|json|null)")
	rootCmd.PersistentFlags().String("cpuprofile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("memprofile", "", "write a heap profile to this file")
	rootCmd.PersistentFlags().String("exectrace", "", "write a Go execution trace to this file")
	rootCmd.PersistentFlags().String("path-mode", "auto", "how diagnostics print paths (auto|absolute|relative|basename)")
	addCompileFlags(rootCmd)
	addBuildFlags(rootCmd)
}

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			code = internalFailure(os.Stderr, r)
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer func() {
		if err := profiling.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "plcc: warning: %v\n", err)
		}
		profiling = nil
	}()
	return exitCode(rootCmd.ExecuteContext(ctx))
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if ie, ok := codegen.AsInternal(err); ok {
		fmt.Fprintln(os.Stderr, ie.Prompt())
		return exitInternal
	}
	if !errors.Is(err, buildpipeline.ErrDiagnostics) {
		fmt.Fprintf(os.Stderr, "plcc: error: %v\n", err)
	}
	return exitFailure
}

// internalFailure prints the bug report prompt for a recovered panic.
func internalFailure(w io.Writer, r any) int {
	ie := codegen.Recovered(r)
	if len(ie.Stack) > 0 {
		log.Debugf("panic: %s\n%s", ie.Msg, ie.Stack)
	}
	fmt.Fprintln(w, ie.Prompt())
	return exitInternal
}

func configureLogging(cmd *cobra.Command) error {
	verbosity, err := cmd.Flags().GetCount("verbose")
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	logPath, err := cmd.Flags().GetString("log")
	if err != nil {
		return err
	}
	if quiet {
		verbosity = -1
	}
	var path *string
	if logPath != "" {
		path = &logPath
	}
	commonlog.Configure(verbosity, path)
	return nil
}

func startProfiling(cmd *cobra.Command) error {
	var opts prof.Options
	var err error
	if opts.CPU, err = cmd.Flags().GetString("cpuprofile"); err != nil {
		return err
	}
	if opts.Mem, err = cmd.Flags().GetString("memprofile"); err != nil {
		return err
	}
	if opts.Trace, err = cmd.Flags().GetString("exectrace"); err != nil {
		return err
	}
	profiling, err = prof.Start(opts)
	return err
}

// isTerminal checks whether the file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
