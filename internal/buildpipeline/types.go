package buildpipeline

import (
	"time"

	"plcc/internal/observ"
)

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageParse covers parsing, pre-processing and per-file indexing.
	StageParse Stage = "parse"
	// StageAnalyse covers index merging and name resolution.
	StageAnalyse Stage = "analyse"
	// StageLower is the lowering stage.
	StageLower Stage = "lower"
	// StageValidate is the validation stage.
	StageValidate Stage = "validate"
	// StageCodegen is IR generation.
	StageCodegen Stage = "codegen"
	// StageObject compiles the IR into an object file.
	StageObject Stage = "object"
	// StageLink links the object into a shared library.
	StageLink Stage = "link"
)

// stageForPhase maps a timer phase onto the stage it belongs to.
func stageForPhase(name string) (Stage, bool) {
	switch name {
	case observ.PhaseParse:
		return StageParse, true
	case observ.PhaseIndex, observ.PhaseResolve:
		return StageAnalyse, true
	case observ.PhaseLower:
		return StageLower, true
	case observ.PhaseValidate:
		return StageValidate, true
	case observ.PhaseCodegen:
		return StageCodegen, true
	case observ.PhaseObject:
		return StageObject, true
	case observ.PhaseLink:
		return StageLink, true
	}
	return "", false
}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the overall pipeline when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Add accumulates dur onto the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}

// timingsFromReport folds the phases of a timer report into stages.
func timingsFromReport(report observ.Report) Timings {
	var t Timings
	for _, p := range report.Phases {
		if stage, ok := stageForPhase(p.Name); ok {
			t.Add(stage, durationFromMillis(p.DurationMS))
		}
	}
	return t
}

func durationFromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
