package driver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/diag"
	"plcc/internal/diagfmt"
	"plcc/internal/observ"
	"plcc/internal/validation"
)

const libSource = `
FUNCTION add : INT
VAR_INPUT a : INT; b : INT; END_VAR
add := a + b;
END_FUNCTION`

const mainSource = `
PROGRAM main
VAR x : INT; r : REAL; edge : R_TRIG; END_VAR
x := add(1, 2);
r := SQRT(r);
edge(CLK := x > 2);
END_PROGRAM`

func project(t *testing.T, files map[string]string) Config {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Name = "demo"
	for name, src := range files {
		p := filepath.Join(root, name)
		writeFile(t, p, src)
	}
	cfg.Files = []string{root}
	cfg.CacheDir = filepath.Join(root, ".cache")
	return cfg
}

func codes(diags []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestCompileAcrossFiles(t *testing.T) {
	cfg := project(t, map[string]string{"lib.st": libSource, "main.st": mainSource})
	res, err := NewSession(cfg, nil).Compile(context.Background())
	require.NoError(t, err)
	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	require.NotNil(t, res.Module)
	assert.Len(t, res.Inputs, 2)
	assert.Contains(t, res.Lowered.Specialised, "SQRT__REAL")

	ir := res.Module.String()
	assert.Contains(t, ir, "define i16 @add(i16 %0, i16 %1)")
	assert.Contains(t, ir, "@SQRT__REAL(")
	assert.Contains(t, ir, "@main_instance = global %main")
	assert.Contains(t, ir, `source_filename = "demo"`)

	var phases []string
	for _, p := range res.Timings.Phases {
		phases = append(phases, p.Name)
	}
	assert.Subset(t, phases, []string{observ.PhaseParse, observ.PhaseIndex, observ.PhaseResolve, observ.PhaseLower, observ.PhaseValidate, observ.PhaseCodegen})
}

func TestErrorsStopBeforeCodegen(t *testing.T) {
	cfg := project(t, map[string]string{"main.st": "PROGRAM main VAR x : INT; END_VAR x := missing; END_PROGRAM"})
	res, err := NewSession(cfg, nil).Compile(context.Background())
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
	assert.GreaterOrEqual(t, res.ErrorCount(), 1)
	assert.Nil(t, res.Module)

	var d diag.Diagnostic
	for _, x := range res.Diagnostics {
		if x.Code == diag.UnresolvedReference {
			d = x
			break
		}
	}
	require.Equal(t, diag.UnresolvedReference, d.Code)
	f := res.Files.Get(d.Primary.File)
	require.NotNil(t, f)
	assert.Equal(t, "main.st", filepath.Base(f.Path))
	assert.Equal(t, "missing", res.Files.Text(d.Primary))
}

func TestSyntaxErrorsSkipLowering(t *testing.T) {
	cfg := project(t, map[string]string{"main.st": "PROGRAM main VAR x : INT; END_VAR x := ; END_PROGRAM"})
	res, err := NewSession(cfg, nil).Compile(context.Background())
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
	assert.Nil(t, res.Lowered)
	assert.Nil(t, res.Module)
}

func TestNarrowingPolicy(t *testing.T) {
	src := "PROGRAM main VAR d : DINT; i : INT; END_VAR i := d; END_PROGRAM"

	cfg := project(t, map[string]string{"main.st": src})
	res, err := NewSession(cfg, nil).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, []diag.Code{diag.NarrowingConversion}, codes(res.Diagnostics))
	assert.Equal(t, diag.SevWarning, res.Diagnostics[0].Severity)
	assert.False(t, res.HasErrors())

	cfg.Narrowing = validation.LintError
	cfg.NoCache = true
	res, err = NewSession(cfg, nil).Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.HasErrors())

	cfg.Narrowing = validation.LintWarning
	cfg.Suppress = []string{"narrowing_conversion"}
	res, err = NewSession(cfg, nil).Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestCheckUsesDiskCache(t *testing.T) {
	cfg := project(t, map[string]string{"main.st": "PROGRAM main VAR x : INT; END_VAR x := nope; END_PROGRAM"})
	cache, err := OpenDiskCache(cfg.CacheDir)
	require.NoError(t, err)

	first, err := NewSession(cfg, nil).WithCache(cache).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.NotEmpty(t, first.Diagnostics)

	r, err := diagfmt.New(diagfmt.FormatNull, nil, nil, diagfmt.DefaultOpts())
	require.NoError(t, err)
	second, err := NewSession(cfg, r).WithCache(cache).Check(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	require.Len(t, second.Diagnostics, len(first.Diagnostics))
	for i := range first.Diagnostics {
		a, b := first.Diagnostics[i], second.Diagnostics[i]
		assert.Equal(t, a.Code, b.Code)
		assert.Equal(t, a.Message, b.Message)
		assert.Equal(t, first.Files.Text(a.Primary), second.Files.Text(b.Primary))
	}

	cfg.Narrowing = validation.LintOff
	third, err := NewSession(cfg, nil).WithCache(cache).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, third.Cached, "a different configuration is a different key")

	require.NoError(t, cache.DropAll())
	fourth, err := NewSession(cfg, nil).WithCache(cache).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, fourth.Cached)
}

func TestParallelismIsDeterministic(t *testing.T) {
	files := map[string]string{
		"a.st": "FUNCTION fa : INT fa := unknown_a; END_FUNCTION",
		"b.st": "FUNCTION fb : INT fb := unknown_b; END_FUNCTION",
		"c.st": "FUNCTION fc : INT fc := unknown_c; END_FUNCTION",
		"d.st": "PROGRAM main VAR x : INT; END_VAR x := fa() + fb() + fc() + unknown_d; END_PROGRAM",
	}
	cfg := project(t, files)
	render := func(jobs int) string {
		cfg.Jobs = jobs
		res, err := NewSession(cfg, nil).Check(context.Background())
		require.NoError(t, err)
		return diag.Listing(res.Diagnostics, res.Files, true)
	}
	sequential := render(1)
	assert.NotEmpty(t, sequential)
	for range 3 {
		assert.Equal(t, sequential, render(4))
	}
}

func TestRegisteredSourcesWithoutFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoStdlib = true
	s := NewSession(cfg, nil)
	id := s.RegisterSource("<stdin>", libSource)
	res, err := s.Compile(context.Background(), id)
	require.NoError(t, err)
	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	assert.Contains(t, res.Module.String(), "define i16 @add")

	_, err = NewSession(cfg, nil).Compile(context.Background())
	assert.ErrorContains(t, err, "no input files")
}

func TestCancelledContext(t *testing.T) {
	cfg := project(t, map[string]string{"main.st": mainSource, "lib.st": libSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSession(cfg, nil).Compile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
