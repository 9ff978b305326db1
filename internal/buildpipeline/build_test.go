package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/driver"
	"plcc/internal/observ"
)

const counter = `
PROGRAM main
VAR count : DINT; END_VAR
count := count + 1;
END_PROGRAM`

// fakeTools records commands and creates whatever follows "-o".
type fakeTools struct {
	mu       sync.Mutex
	commands []string
	fail     map[string]error
	missing  map[string]bool
}

func (f *fakeTools) toolchain() Toolchain {
	return Toolchain{
		Exec: func(_ context.Context, name string, args ...string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.commands = append(f.commands, name+" "+strings.Join(args, " "))
			if err := f.fail[name]; err != nil {
				return err
			}
			for i, a := range args {
				if a == "-o" && i+1 < len(args) {
					return os.WriteFile(args[i+1], []byte(name), 0o600)
				}
			}
			return nil
		},
		LookPath: func(file string) (string, error) {
			if f.missing[file] {
				return "", errors.New("not found")
			}
			return file, nil
		},
	}
}

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordSink) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordSink) stages(status Status) []Stage {
	var out []Stage
	for _, ev := range r.events {
		if ev.File == "" && ev.Status == status {
			out = append(out, ev.Stage)
		}
	}
	return out
}

func request(t *testing.T, src string) *Request {
	t.Helper()
	cfg := driver.DefaultConfig()
	cfg.Name = "demo"
	cfg.NoStdlib = true
	cfg.Output = filepath.Join(t.TempDir(), "out", "demo.o")
	return &Request{
		Config: cfg,
		Inline: []Source{{Path: "main.st", Text: src}},
		Files:  []string{"main.st"},
	}
}

func TestBuildObject(t *testing.T) {
	tools := &fakeTools{}
	sink := &recordSink{}
	req := request(t, counter)
	req.Config.Optimization = driver.OptAggressive
	req.Toolchain = tools.toolchain()
	req.Progress = sink

	res, err := Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.Config.Output, res.OutputPath)
	assert.FileExists(t, res.OutputPath)

	require.Len(t, tools.commands, 1)
	assert.True(t, strings.HasPrefix(tools.commands[0], "clang -c -x ir -O3 "), tools.commands[0])
	assert.True(t, strings.HasSuffix(tools.commands[0], "-o "+res.OutputPath), tools.commands[0])

	assert.Equal(t, []Stage{StageParse, StageAnalyse, StageLower, StageValidate, StageCodegen, StageObject}, sink.stages(StatusWorking))
	assert.Equal(t, []Stage{StageObject}, sink.stages(StatusDone))
	assert.True(t, res.Timings.Has(StageObject))
	assert.False(t, res.Timings.Has(StageLink))
}

func TestBuildSharedLibrary(t *testing.T) {
	tools := &fakeTools{}
	req := request(t, counter)
	req.Config.Output = filepath.Join(filepath.Dir(req.Config.Output), "libdemo.so")
	req.Config.Linker = "cc -fuse-ld=lld"
	req.Config.Target = "x86_64-linux-gnu"
	req.Toolchain = tools.toolchain()

	res, err := Build(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, tools.commands, 2)
	assert.Contains(t, tools.commands[0], "--target=x86_64-linux-gnu")
	assert.True(t, strings.HasPrefix(tools.commands[1], "cc -fuse-ld=lld -shared "), tools.commands[1])
	assert.True(t, strings.HasSuffix(tools.commands[1], "-o "+res.OutputPath))

	var phases []string
	for _, p := range res.Report.Phases {
		phases = append(phases, p.Name)
	}
	assert.Subset(t, phases, []string{observ.PhaseCodegen, observ.PhaseObject, observ.PhaseLink})
}

func TestBuildEmitIR(t *testing.T) {
	tools := &fakeTools{}
	req := request(t, counter)
	req.Config.Output = ""
	req.EmitIR = true
	req.Toolchain = tools.toolchain()

	dir := t.TempDir()
	t.Chdir(dir)
	res, err := Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "demo.ll", res.OutputPath)
	assert.Empty(t, tools.commands)

	data, err := os.ReadFile(filepath.Join(dir, "demo.ll"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "@main_instance")
}

func TestBuildFallsBackToLLC(t *testing.T) {
	tools := &fakeTools{fail: map[string]error{"clang": errors.New("clang: unsupported IR")}}
	req := request(t, counter)
	req.Toolchain = tools.toolchain()

	_, err := Build(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, tools.commands, 2)
	assert.True(t, strings.HasPrefix(tools.commands[1], "llc -filetype=obj -O2 "), tools.commands[1])

	tools = &fakeTools{
		fail:    map[string]error{"clang": errors.New("clang: unsupported IR")},
		missing: map[string]bool{"llc": true},
	}
	req.Toolchain = tools.toolchain()
	_, err = Build(context.Background(), req)
	assert.ErrorContains(t, err, "unsupported IR")
}

func TestBuildWithoutClang(t *testing.T) {
	tools := &fakeTools{missing: map[string]bool{"clang": true}}
	req := request(t, counter)
	req.Toolchain = tools.toolchain()
	_, err := Build(context.Background(), req)
	assert.ErrorContains(t, err, "clang not found")
}

func TestBuildStopsOnDiagnostics(t *testing.T) {
	tools := &fakeTools{}
	sink := &recordSink{}
	req := request(t, "PROGRAM main VAR x : INT; END_VAR x := nope; END_PROGRAM")
	req.Toolchain = tools.toolchain()
	req.Progress = sink

	res, err := Build(context.Background(), req)
	require.ErrorIs(t, err, ErrDiagnostics)
	require.NotNil(t, res.Compile)
	assert.True(t, res.Compile.HasErrors())
	assert.Empty(t, res.OutputPath)
	assert.Empty(t, tools.commands)
	assert.NotEmpty(t, sink.stages(StatusError))
}

func TestCheck(t *testing.T) {
	req := request(t, counter)
	res, err := Check(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Compile.HasErrors())
	assert.Nil(t, res.Compile.Module)

	req = request(t, "PROGRAM main x := 1; END_PROGRAM")
	_, err = Check(context.Background(), req)
	assert.ErrorIs(t, err, ErrDiagnostics)
}

func TestOutputPath(t *testing.T) {
	cfg := driver.DefaultConfig()
	cfg.Name = "plant"
	assert.Equal(t, "plant.o", OutputPath(cfg, false))
	assert.Equal(t, "plant.ll", OutputPath(cfg, true))
	cfg.Linker = "cc"
	assert.Equal(t, "plant.so", OutputPath(cfg, false))
	cfg.Output = "x/y.so"
	assert.Equal(t, "x/y.so", OutputPath(cfg, false))
}

func TestPlannedStages(t *testing.T) {
	cfg := driver.DefaultConfig()
	front := []Stage{StageParse, StageAnalyse, StageLower, StageValidate, StageCodegen}
	assert.Equal(t, front, PlannedStages(cfg, true))
	assert.Equal(t, append(front, StageObject), PlannedStages(cfg, false))
	cfg.Linker = "cc"
	assert.Equal(t, append(front, StageObject, StageLink), PlannedStages(cfg, false))
}

func TestProgressFiles(t *testing.T) {
	base := t.TempDir()
	files := []string{
		filepath.Join(base, "src", "b.st"),
		filepath.Join(base, "a.st"),
		filepath.Join(base, "a.st"),
		"",
	}
	assert.Equal(t, []string{"a.st", "src/b.st"}, ProgressFiles(files, base))
}
