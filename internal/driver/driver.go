// Package driver runs the compiler front and middle end over a project:
// loading sources, the parallel per-file phases, lowering, validation and
// code generation, with an on-disk cache for diagnostics-only runs.
package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/tliron/commonlog"

	"plcc/internal/ast"
	"plcc/internal/codegen"
	"plcc/internal/diag"
	"plcc/internal/diagfmt"
	"plcc/internal/index"
	"plcc/internal/lowering"
	"plcc/internal/observ"
	"plcc/internal/resolver"
	"plcc/internal/source"
	"plcc/internal/stdlib"
	"plcc/internal/validation"
)

var log = commonlog.GetLogger("plcc.driver")

// Result is everything one run produced. Fields past Diagnostics are nil
// when an earlier phase stopped the run or the diagnostics came from the
// cache.
type Result struct {
	Files *source.FileSet
	// Inputs are the user files, in command-line order.
	Inputs      []source.FileID
	Diagnostics []diag.Diagnostic
	Cached      bool

	Units       []*ast.CompilationUnit
	Declared    *index.Index
	Index       *index.Index
	Annotations *resolver.AnnotationMap
	Lowered     *lowering.Result
	Module      *ir.Module

	Timings observ.Report
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	for i := range r.Diagnostics {
		if r.Diagnostics[i].Severity == diag.SevError {
			return true
		}
	}
	return false
}

// ErrorCount counts the error diagnostics.
func (r *Result) ErrorCount() int {
	n := 0
	for i := range r.Diagnostics {
		if r.Diagnostics[i].Severity == diag.SevError {
			n++
		}
	}
	return n
}

// Session compiles the sources of one configuration. Sources are
// registered with the reporter so that it can quote them.
type Session struct {
	cfg      Config
	reporter diagfmt.Reporter
	timer    *observ.Timer
	cache    *DiskCache
}

// NewSession prepares a run. A nil reporter discards diagnostics.
func NewSession(cfg Config, reporter diagfmt.Reporter) *Session {
	if reporter == nil {
		reporter = diagfmt.NewNull()
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = DefaultConfig().Jobs
	}
	return &Session{cfg: cfg, reporter: reporter, timer: observ.NewTimer()}
}

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Timer exposes the phase timer so later build stages can add to it.
func (s *Session) Timer() *observ.Timer { return s.timer }

// WithCache makes Check consult and fill c.
func (s *Session) WithCache(c *DiskCache) *Session {
	s.cache = c
	return s
}

// RegisterSource adds an in-memory source, for stdin and tests.
func (s *Session) RegisterSource(path, src string) source.FileID {
	return s.reporter.Register(path, src)
}

func (s *Session) load() ([]source.FileID, error) {
	paths, err := ExpandInputs(s.cfg.Files)
	if err != nil {
		return nil, err
	}
	ids := make([]source.FileID, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		ids = append(ids, s.reporter.Register(p, string(content)))
	}
	return ids, nil
}

// Check runs every analysis phase and returns the diagnostics. With a cache,
// an unchanged project is answered from disk without analysing it.
func (s *Session) Check(ctx context.Context, extra ...source.FileID) (*Result, error) {
	res, ids, err := s.prepare(extra)
	if err != nil {
		return nil, err
	}
	var key Digest
	if s.cache != nil {
		key = cacheKey(res.Files, ids, s.cfg.fingerprint())
		run, ok, err := s.cache.Get(key)
		if err != nil {
			log.Warningf("diagnostics cache: %s", err)
		}
		if ok {
			log.Infof("diagnostics cache hit %s", key)
			res.Cached = true
			res.Diagnostics = fromCachedRun(res.Files, run)
			return res, nil
		}
	}
	if err := s.analyse(ctx, res, ids); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Put(key, toCachedRun(res.Files, ids, res.Diagnostics)); err != nil {
			log.Warningf("diagnostics cache: %s", err)
		}
	}
	return res, nil
}

// Compile analyses the project and, when it is free of errors, generates
// its IR module.
func (s *Session) Compile(ctx context.Context, extra ...source.FileID) (*Result, error) {
	res, ids, err := s.prepare(extra)
	if err != nil {
		return nil, err
	}
	if err := s.analyse(ctx, res, ids); err != nil {
		return nil, err
	}
	if res.HasErrors() || res.Lowered == nil {
		res.Timings = s.timer.Report()
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var genErr error
	s.timer.Measure(observ.PhaseCodegen, func() string {
		res.Module, genErr = codegen.Generate(res.Units, res.Index, res.Annotations, codegen.Options{
			ModuleName:   s.cfg.ModuleName(),
			Target:       s.cfg.Target,
			UseInitArray: s.cfg.UseInitArray,
			Constructor:  res.Lowered.Constructor,
		})
		return ""
	})
	if genErr != nil {
		return nil, fmt.Errorf("codegen: %w", genErr)
	}
	res.Timings = s.timer.Report()
	return res, nil
}

func (s *Session) prepare(extra []source.FileID) (*Result, []source.FileID, error) {
	ids, err := s.load()
	if err != nil {
		return nil, nil, err
	}
	ids = append(ids, extra...)
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("no input files")
	}
	res := &Result{Files: s.reporter.Files(), Inputs: ids}
	all := ids
	if !s.cfg.NoStdlib {
		all = append(stdlib.Register(res.Files), ids...)
	}
	return res, all, nil
}

// analyse runs parse through validation. Lowering is skipped when the
// earlier phases reported errors; the validator then checks the units as
// written.
func (s *Session) analyse(ctx context.Context, res *Result, ids []source.FileID) error {
	policy, err := s.cfg.Policy()
	if err != nil {
		return err
	}
	bag := diag.NewBag(0)

	var parsed []parsedFile
	s.timer.Measure(observ.PhaseParse, func() string {
		parsed, err = parseAll(ctx, res.Files, ids, s.cfg.Jobs)
		return fmt.Sprintf("%d files", len(ids))
	})
	if err != nil {
		return err
	}

	units := make([]*ast.CompilationUnit, len(parsed))
	declared := index.New()
	s.timer.Measure(observ.PhaseIndex, func() string {
		for i, p := range parsed {
			units[i] = p.unit
			bag.AddAll(p.diags)
			declared.Import(p.index)
		}
		bag.AddAll(declared.Resolve())
		return ""
	})
	res.Declared = declared

	var am *resolver.AnnotationMap
	s.timer.Measure(observ.PhaseResolve, func() string {
		am, err = annotateAll(ctx, declared, units, s.cfg.Jobs)
		return ""
	})
	if err != nil {
		return err
	}
	log.Debugf("front end: %d units, %d diagnostics", len(units), bag.Len())

	vopts := validation.Options{Declared: declared, Narrowing: s.cfg.Narrowing}
	if bag.HasErrors() {
		log.Infof("skipping lowering: the front end reported errors")
		res.Units, res.Index, res.Annotations = units, declared, am
		s.timer.Measure(observ.PhaseValidate, func() string {
			bag.AddAll(validation.Validate(units, declared, am, vopts))
			return ""
		})
		res.Diagnostics = finish(bag, policy)
		res.Timings = s.timer.Report()
		return nil
	}

	var lowered *lowering.Result
	s.timer.Measure(observ.PhaseLower, func() string {
		lowered, err = lowering.Lower(units, declared, am, ast.NewIDProvider(), lowering.Options{Project: s.cfg.ModuleName()})
		if lowered == nil {
			return ""
		}
		return fmt.Sprintf("%d specialised, %d vtables, %d itables", len(lowered.Specialised), len(lowered.Vtables), len(lowered.Itables))
	})
	if err != nil {
		return fmt.Errorf("lowering: %w", err)
	}

	after, _ := index.Build(lowered.Units...)
	lm, err := annotateAll(ctx, after, lowered.Units, s.cfg.Jobs)
	if err != nil {
		return err
	}
	res.Units, res.Index, res.Annotations, res.Lowered = lowered.Units, after, lm, lowered

	s.timer.Measure(observ.PhaseValidate, func() string {
		bag.AddAll(validation.Validate(lowered.Units, after, lm, vopts))
		return ""
	})
	res.Diagnostics = finish(bag, policy)
	res.Timings = s.timer.Report()
	return nil
}

func finish(bag *diag.Bag, policy diag.Policy) []diag.Diagnostic {
	bag.Apply(policy)
	bag.Dedup()
	bag.Sort()
	return bag.Items()
}
