package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"plcc/internal/buildpipeline"
	"plcc/internal/codegen"
	"plcc/internal/ui"
)

type buildOutcome struct {
	result buildpipeline.Result
	err    error
}

// runBuildWithUI runs the build on another goroutine while the progress
// view owns the terminal. An internal compiler error raised there comes
// back as the outcome's error.
func runBuildWithUI(ctx context.Context, title string, files []string, req *buildpipeline.Request) (buildpipeline.Result, error) {
	if req == nil {
		return buildpipeline.Result{}, fmt.Errorf("missing build request")
	}
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		var outcome buildOutcome
		defer func() {
			if r := recover(); r != nil {
				outcome.err = codegen.Recovered(r)
			}
			outcomeCh <- outcome
			close(events)
		}()
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		reqCopy.Files = files
		outcome.result, outcome.err = buildpipeline.Build(ctx, &reqCopy)
	}()

	model := ui.NewProgressModel(title, files, buildpipeline.PlannedStages(req.Config, req.EmitIR), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
