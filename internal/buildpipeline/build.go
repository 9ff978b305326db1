// Package buildpipeline orchestrates a build: the driver's analysis and
// code generation, then the external tools that turn the IR module into an
// object file or a shared library, reporting progress along the way.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"

	"plcc/internal/diagfmt"
	"plcc/internal/driver"
	"plcc/internal/observ"
	"plcc/internal/source"
)

var log = commonlog.GetLogger("plcc.build")

// ErrDiagnostics is returned when the project has error diagnostics. The
// diagnostics themselves are in the result.
var ErrDiagnostics = errors.New("compilation reported errors")

// Source is an in-memory input, such as standard input.
type Source struct {
	Path string
	Text string
}

// Request configures one build or check.
type Request struct {
	Config   driver.Config
	Reporter diagfmt.Reporter
	// Inline sources are compiled together with Config.Files.
	Inline []Source
	// Cache serves Check; nil runs without the diagnostics cache.
	Cache *driver.DiskCache
	// EmitIR writes textual IR to the output instead of an object.
	EmitIR    bool
	Toolchain Toolchain
	Progress  ProgressSink
	// Files are the names the progress view shows.
	Files []string
}

// Result captures build artefacts and timings.
type Result struct {
	Compile *driver.Result
	// OutputPath is the artefact written, empty when nothing was.
	OutputPath string
	Timings    Timings
	Report     observ.Report
}

// OutputPath is where a build with cfg writes its artefact: the configured
// output, or the module name with the extension of the artefact kind.
func OutputPath(cfg driver.Config, emitIR bool) string {
	if cfg.Output != "" {
		return cfg.Output
	}
	name := cfg.ModuleName()
	switch {
	case emitIR:
		return name + ".ll"
	case cfg.Linker != "":
		return name + ".so"
	}
	return name + ".o"
}

// PlannedStages lists the stages a build with cfg goes through, in order.
func PlannedStages(cfg driver.Config, emitIR bool) []Stage {
	stages := []Stage{StageParse, StageAnalyse, StageLower, StageValidate, StageCodegen}
	if emitIR {
		return stages
	}
	stages = append(stages, StageObject)
	if cfg.Linker != "" {
		stages = append(stages, StageLink)
	}
	return stages
}

func (req *Request) session() (*driver.Session, []source.FileID, *phaseObserver) {
	s := driver.NewSession(req.Config, req.Reporter)
	ids := make([]source.FileID, 0, len(req.Inline))
	for _, src := range req.Inline {
		ids = append(ids, s.RegisterSource(src.Path, src.Text))
	}
	emitQueued(req.Progress, req.Files)
	obs := newPhaseObserver(req.Progress, req.Files)
	s.Timer().OnBegin(obs.OnPhase)
	return s, ids, obs
}

// Check analyses the project without generating code.
func Check(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	s, ids, obs := req.session()
	if req.Cache != nil && !req.Config.NoCache {
		s.WithCache(req.Cache)
	}
	res, err := s.Check(ctx, ids...)
	result.Compile = res
	result.Report = s.Timer().Report()
	result.Timings = timingsFromReport(result.Report)
	if err != nil {
		obs.fail(err)
		return result, err
	}
	if res.HasErrors() {
		obs.fail(ErrDiagnostics)
		return result, ErrDiagnostics
	}
	emitStage(req.Progress, req.Files, StageValidate, StatusDone, nil, result.Timings.Sum(StageParse, StageAnalyse, StageLower, StageValidate))
	return result, nil
}

// Build compiles the project and writes its artefact: textual IR, an
// object file, or a shared library when a linker is configured.
func Build(ctx context.Context, req *Request) (result Result, err error) {
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	s, ids, obs := req.session()
	timer := s.Timer()
	defer func() {
		result.Report = timer.Report()
		result.Timings = timingsFromReport(result.Report)
	}()

	res, err := s.Compile(ctx, ids...)
	result.Compile = res
	if err != nil {
		obs.fail(err)
		return result, err
	}
	if res.HasErrors() {
		obs.fail(ErrDiagnostics)
		return result, ErrDiagnostics
	}
	if res.Module == nil {
		err := fmt.Errorf("no module generated")
		obs.fail(err)
		return result, err
	}

	out := OutputPath(req.Config, req.EmitIR)
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return result, fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	start := time.Now()

	if req.EmitIR {
		if err := os.WriteFile(out, []byte(res.Module.String()), 0o600); err != nil {
			err = fmt.Errorf("failed to write LLVM IR: %w", err)
			obs.fail(err)
			return result, err
		}
		result.OutputPath = out
		emitStage(req.Progress, req.Files, StageCodegen, StatusDone, nil, time.Since(start))
		return result, nil
	}

	tmpDir, err := os.MkdirTemp("", "plcc-*")
	if err != nil {
		return result, fmt.Errorf("failed to create tmp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	llPath := filepath.Join(tmpDir, "out.ll")
	if err := os.WriteFile(llPath, []byte(res.Module.String()), 0o600); err != nil {
		return result, fmt.Errorf("failed to write LLVM IR: %w", err)
	}
	objPath := out
	if req.Config.Linker != "" {
		objPath = filepath.Join(tmpDir, "out.o")
	}

	tc := &req.Toolchain
	timer.Measure(observ.PhaseObject, func() string {
		err = tc.CompileIR(ctx, llPath, objPath, req.Config.Optimization, req.Config.Target)
		return req.Config.Optimization.Flag()
	})
	if err != nil {
		obs.fail(err)
		return result, err
	}

	if req.Config.Linker != "" {
		timer.Measure(observ.PhaseLink, func() string {
			err = tc.Link(ctx, req.Config.Linker, objPath, out)
			return req.Config.Linker
		})
		if err != nil {
			obs.fail(err)
			return result, err
		}
	}

	log.Infof("wrote %s", out)
	result.OutputPath = out
	emitStage(req.Progress, req.Files, obs.current, StatusDone, nil, time.Since(start))
	return result, nil
}
