package buildpipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"plcc/internal/driver"
)

// Toolchain runs the external tools that turn IR into objects and
// libraries. The zero value uses clang from PATH.
type Toolchain struct {
	// Clang is the IR compiler; "clang" when empty.
	Clang string
	// PrintCommands echoes every command to Stdout before running it.
	PrintCommands bool
	Stdout        io.Writer
	// Exec and LookPath replace os/exec, for tests.
	Exec     func(ctx context.Context, name string, args ...string) error
	LookPath func(file string) (string, error)
}

func (tc *Toolchain) clang() string {
	if tc.Clang != "" {
		return tc.Clang
	}
	return "clang"
}

func (tc *Toolchain) lookPath(file string) (string, error) {
	if tc.LookPath != nil {
		return tc.LookPath(file)
	}
	return exec.LookPath(file)
}

func (tc *Toolchain) run(ctx context.Context, name string, args ...string) error {
	if tc.PrintCommands {
		w := tc.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", name, strings.Join(args, " ")); err != nil {
			return fmt.Errorf("failed to print command: %w", err)
		}
	}
	log.Debugf("exec %s %s", name, strings.Join(args, " "))
	if tc.Exec != nil {
		return tc.Exec(ctx, name, args...)
	}
	return runCommand(ctx, name, args...)
}

func (tc *Toolchain) ensureClang() error {
	if _, err := tc.lookPath(tc.clang()); err != nil {
		return fmt.Errorf("%s not found; install with: sudo apt-get update && sudo apt-get install -y clang llvm lld", tc.clang())
	}
	return nil
}

// CompileIR compiles llPath into objPath, falling back to llc when clang
// rejects the IR.
func (tc *Toolchain) CompileIR(ctx context.Context, llPath, objPath string, opt driver.OptLevel, target string) error {
	if err := tc.ensureClang(); err != nil {
		return err
	}
	args := []string{"-c", "-x", "ir", opt.Flag()}
	if target != "" {
		args = append(args, "--target="+target)
	}
	args = append(args, llPath, "-o", objPath)
	clangErr := tc.run(ctx, tc.clang(), args...)
	if clangErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	llcPath, llcErr := tc.lookPath("llc")
	if llcErr != nil {
		return fmt.Errorf("%w (llc not found: %v)", clangErr, llcErr)
	}
	log.Warningf("clang could not compile the IR, retrying with llc: %s", clangErr)
	if target == "" {
		target = tc.hostTriple(ctx)
	}
	llcArgs := []string{"-filetype=obj", opt.Flag()}
	if target != "" {
		llcArgs = append(llcArgs, "-mtriple="+target)
	}
	llcArgs = append(llcArgs, llPath, "-o", objPath)
	if err := tc.run(ctx, llcPath, llcArgs...); err != nil {
		return fmt.Errorf("clang and llc failed: %w", err)
	}
	return nil
}

// Link runs linker over objPath to produce the shared library out. The
// linker command may carry its own arguments, e.g. "cc -fuse-ld=lld".
func (tc *Toolchain) Link(ctx context.Context, linker, objPath, out string) error {
	fields := strings.Fields(linker)
	if len(fields) == 0 {
		return fmt.Errorf("empty linker command")
	}
	if _, err := tc.lookPath(fields[0]); err != nil {
		return fmt.Errorf("linker %s: %w", fields[0], err)
	}
	args := append(fields[1:len(fields):len(fields)], "-shared", objPath, "-o", out)
	return tc.run(ctx, fields[0], args...)
}

func (tc *Toolchain) hostTriple(ctx context.Context) string {
	if tc.Exec != nil {
		return ""
	}
	out, err := exec.CommandContext(ctx, tc.clang(), "-dumpmachine").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %s", name, msg)
	}
	return nil
}
