package observ

import (
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(2 * time.Millisecond)
	p := tm.Begin(PhaseParse)
	tm.End(p, "3 files")
	tm.Measure(PhaseIndex, func() string { return "" })

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(r.Phases))
	}
	if r.Phases[0].Name != PhaseParse || r.Phases[0].Note != "3 files" {
		t.Fatalf("first phase = %+v", r.Phases[0])
	}
	if r.Phases[0].DurationMS != 2 || r.TotalMS != 4 {
		t.Fatalf("durations = %v / %v, want 2 / 4", r.Phases[0].DurationMS, r.TotalMS)
	}
	s := tm.Summary()
	if !strings.Contains(s, "parse") || !strings.Contains(s, "// 3 files") || !strings.Contains(s, "total") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	ran := false
	tm.Measure(PhaseLink, func() string { ran = true; return "" })
	if !ran {
		t.Fatal("Measure on a nil timer must still run fn")
	}
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer recorded phases")
	}
}

func TestEndOutOfRange(t *testing.T) {
	tm := NewTimer()
	tm.End(5, "ignored")
	if len(tm.Report().Phases) != 0 {
		t.Fatal("End with a bad index recorded a phase")
	}
}

func TestOnBegin(t *testing.T) {
	tm := NewTimer()
	var seen []string
	tm.OnBegin(func(name string) { seen = append(seen, name) })
	tm.Measure(PhaseParse, func() string { return "" })
	tm.End(tm.Begin(PhaseLower), "")
	if strings.Join(seen, ",") != "parse,lower" {
		t.Fatalf("hook saw %v", seen)
	}
}
