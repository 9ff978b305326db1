package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/buildpipeline"
	"plcc/internal/codegen"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCheckCommandReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "main.st")
	require.NoError(t, os.WriteFile(path, []byte("PROGRAM main\nVAR x : INT; END_VAR\nx := missing;\nEND_PROGRAM\n"), 0o600))

	_, stderr, err := execute(t, "check", "--no-cache", "--no-stdlib", "--format", "clang", "--color", "off", "--path-mode", "basename", path)
	require.ErrorIs(t, err, buildpipeline.ErrDiagnostics)
	assert.Contains(t, stderr, "main.st:3:6: error:")
	assert.Contains(t, stderr, "[E048]")
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestIRCommandPrintsModule(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "main.st")
	require.NoError(t, os.WriteFile(path, []byte("PROGRAM main\nVAR x : DINT; END_VAR\nx := x + 1;\nEND_PROGRAM\n"), 0o600))

	stdout, _, err := execute(t, "ir", "--no-stdlib", "--name", "cell", "--color", "off", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `source_filename = "cell"`)
	assert.Contains(t, stdout, "@main_instance")
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"tool": "plcc"`)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(fmt.Errorf("build: %w", buildpipeline.ErrDiagnostics)))
	assert.Equal(t, exitFailure, exitCode(errors.New("clang not found")))
	ie := &codegen.InternalError{Msg: "expected an lvalue"}
	assert.Equal(t, exitInternal, exitCode(fmt.Errorf("codegen: %w", ie)))
}

func TestPanicsBecomeBugReports(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, exitInternal, internalFailure(&out, "index out of range [3] with length 2"))
	assert.Contains(t, out.String(), "internal compiler error: index out of range [3] with length 2")
	assert.Contains(t, out.String(), codegen.BugReportURL)

	out.Reset()
	assert.Equal(t, exitInternal, internalFailure(&out, &codegen.InternalError{Msg: "expected an lvalue"}))
	assert.Contains(t, out.String(), "expected an lvalue")
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := readUIMode("maybe")
	assert.Error(t, err)
	assert.True(t, shouldUseTUI(uiModeOn))
	assert.False(t, shouldUseTUI(uiModeOff))
}
