package main

import (
	"fmt"
	"io"
	"time"

	"plcc/internal/buildpipeline"
	"plcc/internal/observ"
)

var timedStages = []buildpipeline.Stage{
	buildpipeline.StageParse,
	buildpipeline.StageAnalyse,
	buildpipeline.StageLower,
	buildpipeline.StageValidate,
	buildpipeline.StageCodegen,
	buildpipeline.StageObject,
	buildpipeline.StageLink,
}

func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range timedStages {
		if !timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%-10s %7.1f ms\n", stage, toMillis(timings.Duration(stage)))
	}
}

// printPhaseTimings lists every recorded phase with its note.
func printPhaseTimings(out io.Writer, report observ.Report) {
	if out == nil || len(report.Phases) == 0 {
		return
	}
	fmt.Fprintln(out, "phases:")
	for _, p := range report.Phases {
		fmt.Fprintf(out, "  %-10s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(out, "  // %s", p.Note)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  %-10s %7.2f ms\n", "total", report.TotalMS)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
