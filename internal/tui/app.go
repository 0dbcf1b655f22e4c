// Package tui is the interactive dashboard over the pipeline: a step
// list with live completion status, a run view streaming step output,
// and menus for analysis, visualization, and simulation settings.
package tui

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gmxflow/gmxflow/internal/analysis"
	"github.com/gmxflow/gmxflow/internal/pipeline"
	"github.com/gmxflow/gmxflow/internal/runner"
	"github.com/gmxflow/gmxflow/internal/state"
	"github.com/gmxflow/gmxflow/internal/step"
)

// App wraps the Bubbletea program.
type App struct {
	program *tea.Program
	model   Model
	watcher *state.Watcher
}

// New creates a new TUI application.
func New(model Model) *App {
	return &App{model: model}
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	// Flag events from other processes refresh the step list.
	if w, err := a.model.store.Watch(); err == nil {
		a.watcher = w
		defer w.Close()
	}

	a.model.send = func(msg tea.Msg) {
		if a.program != nil {
			a.program.Send(msg)
		}
	}

	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Preserve a clean terminal when the process is terminated.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigChan
		if a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	if a.watcher != nil {
		go func() {
			for ev := range a.watcher.Events() {
				a.program.Send(flagEventMsg{event: ev})
			}
		}()
	}

	_, err := a.program.Run()
	signal.Stop(sigChan)
	return err
}

// Messages

type stepLineMsg string

type stepDoneMsg struct {
	id     step.ID
	result *runner.Result
	err    error
}

type batchDoneMsg struct {
	batch *pipeline.BatchResult
}

type analysisDoneMsg struct {
	result *analysis.Result
}

type flagEventMsg struct {
	event state.Event
}

// Commands

// stepExec runs one interactive step with the terminal ceded to the
// child process. Bubbletea restores the terminal around Run.
type stepExec struct {
	ctrl   *pipeline.Controller
	id     step.ID
	result *runner.Result
	err    error
}

func (e *stepExec) Run() error {
	e.result, e.err = e.ctrl.RunStep(context.Background(), e.id, pipeline.RunOptions{})
	return nil
}

func (e *stepExec) SetStdin(io.Reader)  {}
func (e *stepExec) SetStdout(io.Writer) {}
func (e *stepExec) SetStderr(io.Writer) {}

func execStep(ctrl *pipeline.Controller, id step.ID) tea.Cmd {
	e := &stepExec{ctrl: ctrl, id: id}
	return tea.Exec(e, func(error) tea.Msg {
		return stepDoneMsg{id: e.id, result: e.result, err: e.err}
	})
}

// pipelineExec runs the whole catalog with the terminal ceded, so the
// interactive steps can prompt and the captured ones print directly.
type pipelineExec struct {
	ctrl            *pipeline.Controller
	continueOnError bool
	batch           *pipeline.BatchResult
	out             io.Writer
}

func (e *pipelineExec) Run() error {
	out := e.out
	if out == nil {
		out = os.Stdout
	}
	e.batch = e.ctrl.RunAll(context.Background(), pipeline.RunOptions{
		Sink:            func(line string) { _, _ = io.WriteString(out, line+"\n") },
		ContinueOnError: e.continueOnError,
	})
	return nil
}

func (e *pipelineExec) SetStdin(io.Reader)    {}
func (e *pipelineExec) SetStdout(w io.Writer) { e.out = w }
func (e *pipelineExec) SetStderr(io.Writer)   {}

func execPipeline(ctrl *pipeline.Controller, continueOnError bool) tea.Cmd {
	e := &pipelineExec{ctrl: ctrl, continueOnError: continueOnError}
	return tea.Exec(e, func(error) tea.Msg {
		return batchDoneMsg{batch: e.batch}
	})
}

// analysisExec runs one analysis tool with the terminal ceded for the
// GROMACS group-selection prompt.
type analysisExec struct {
	run    *analysis.Runner
	index  int
	result *analysis.Result
}

func (e *analysisExec) Run() error {
	e.result = e.run.Run(context.Background(), e.index, nil, runner.ModeInteractive)
	return nil
}

func (e *analysisExec) SetStdin(io.Reader)  {}
func (e *analysisExec) SetStdout(io.Writer) {}
func (e *analysisExec) SetStderr(io.Writer) {}

func execAnalysis(run *analysis.Runner, index int) tea.Cmd {
	e := &analysisExec{run: run, index: index}
	return tea.Exec(e, func(error) tea.Msg {
		return analysisDoneMsg{result: e.result}
	})
}
