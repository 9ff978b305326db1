package buildpipeline

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// phaseObserver turns timer phases into stage events, once per stage.
type phaseObserver struct {
	sink    ProgressSink
	files   []string
	started map[Stage]bool
	current Stage
}

func newPhaseObserver(sink ProgressSink, files []string) *phaseObserver {
	return &phaseObserver{sink: sink, files: files, started: make(map[Stage]bool)}
}

// OnPhase is installed as the timer's begin hook.
func (p *phaseObserver) OnPhase(name string) {
	if p == nil || p.sink == nil {
		return
	}
	stage, ok := stageForPhase(name)
	if !ok || p.started[stage] {
		return
	}
	p.started[stage] = true
	p.current = stage
	emitStage(p.sink, p.files, stage, StatusWorking, nil, 0)
}

// fail reports err against the stage that was running.
func (p *phaseObserver) fail(err error) {
	if p == nil {
		return
	}
	stage := p.current
	if stage == "" {
		stage = StageParse
	}
	emitStage(p.sink, p.files, stage, StatusError, err, 0)
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageParse, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, files []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}

// ProgressFiles turns input paths into the sorted, de-duplicated names the
// progress view shows, relative to baseDir where possible.
func ProgressFiles(files []string, baseDir string) []string {
	if len(files) == 0 {
		return files
	}
	normalized := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))

	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}

	for _, file := range files {
		if file == "" {
			continue
		}
		path := filepath.Clean(file)
		if base != "" {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if rel, err := filepath.Rel(base, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
		path = filepath.ToSlash(path)
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		normalized = append(normalized, path)
	}
	sort.Strings(normalized)
	return normalized
}
