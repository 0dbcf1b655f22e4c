package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gmxflow/gmxflow/internal/step"
)

func testRegistry(t *testing.T, steps ...step.Step) *step.Registry {
	t.Helper()
	reg, err := step.NewRegistry(steps, nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return reg
}

// collectSink returns a Sink that appends lines under a lock, since the
// two stream readers invoke it concurrently.
func collectSink() (Sink, func() []string) {
	var mu sync.Mutex
	var lines []string
	sink := func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}
	get := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
	return sink, get
}

func TestExecute_ZeroExitIsComplete(t *testing.T) {
	reg := testRegistry(t, step.Step{ID: 1, Name: "ok", Command: "echo hello"})
	r := New(reg, t.TempDir())

	sink, got := collectSink()
	res := r.Execute(context.Background(), 1, sink, ModeCaptured)

	if res.Status != StatusComplete {
		t.Fatalf("status = %s, want complete (result: %+v)", res.Status, res)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("stdout = %q, want to contain hello", res.Stdout)
	}

	lines := got()
	if len(lines) == 0 || !strings.Contains(lines[0], "Executing Step 1: ok") {
		t.Errorf("missing header line, got %v", lines)
	}
	found := false
	for _, l := range lines {
		if l == "hello" {
			found = true
		}
	}
	if !found {
		t.Errorf("sink never received the process output: %v", lines)
	}
}

func TestExecute_NonzeroExitPreserved(t *testing.T) {
	reg := testRegistry(t,
		step.Step{ID: 1, Name: "one", Command: "exit 1"},
		step.Step{ID: 2, Name: "seven", Command: "exit 7"},
	)
	r := New(reg, t.TempDir())

	for id, want := range map[step.ID]int{1: 1, 2: 7} {
		res := r.Execute(context.Background(), id, nil, ModeCaptured)
		if res.Status != StatusError {
			t.Errorf("step %d status = %s, want error", id, res.Status)
		}
		if res.ExitCode != want {
			t.Errorf("step %d exit code = %d, want %d", id, res.ExitCode, want)
		}
	}
}

func TestExecute_UnknownStep(t *testing.T) {
	reg := testRegistry(t, step.Step{ID: 1, Name: "only", Command: "true"})
	r := New(reg, t.TempDir())

	res := r.Execute(context.Background(), 42, nil, ModeCaptured)
	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if res.ExitCode != ExitSpawnFailure {
		t.Errorf("exit code = %d, want sentinel %d", res.ExitCode, ExitSpawnFailure)
	}
	if !strings.Contains(res.Message, "42") {
		t.Errorf("message %q does not name the offending id", res.Message)
	}
}

func TestExecute_SpawnFailureSentinel(t *testing.T) {
	reg := testRegistry(t, step.Step{ID: 1, Name: "doomed", Command: "true"})
	r := New(reg, t.TempDir(), WithShell("/nonexistent/shell"))

	res := r.Execute(context.Background(), 1, nil, ModeCaptured)
	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if res.ExitCode != ExitSpawnFailure {
		t.Errorf("exit code = %d, want sentinel %d", res.ExitCode, ExitSpawnFailure)
	}
	if res.Message == "" {
		t.Error("spawn failure carries no message")
	}
}

func TestExecute_ShellConjunctionStopsAtFailure(t *testing.T) {
	// Mirrors steps like grompp && mdrun: the second stage's exit code
	// is the step's exit code.
	reg := testRegistry(t, step.Step{ID: 1, Name: "chain", Command: "true && exit 2"})
	r := New(reg, t.TempDir())

	res := r.Execute(context.Background(), 1, nil, ModeCaptured)
	if res.Status != StatusError || res.ExitCode != 2 {
		t.Fatalf("got status=%s exit=%d, want error/2", res.Status, res.ExitCode)
	}
}

func TestExecute_WorkdirAndEnvironmentInherited(t *testing.T) {
	dir := t.TempDir()
	reg := testRegistry(t, step.Step{ID: 1, Name: "env", Command: "pwd && printf '%s\\n' \"$GMX_TEST_MARKER\""})
	r := New(reg, dir)

	t.Setenv("GMX_TEST_MARKER", "gpu-visible")

	res := r.Execute(context.Background(), 1, nil, ModeCaptured)
	if res.Status != StatusComplete {
		t.Fatalf("status = %s: %+v", res.Status, res)
	}
	if !strings.Contains(res.Stdout, dir) {
		t.Errorf("process cwd not the working directory: %q", res.Stdout)
	}
	if !strings.Contains(res.Stdout, "gpu-visible") {
		t.Errorf("environment not inherited: %q", res.Stdout)
	}
}

func TestExecute_InterleavedHeavyOutputNoDeadlock(t *testing.T) {
	if testing.Short() {
		t.Skip("heavy output test skipped in short mode")
	}

	// 20k lines on each stream, far beyond any OS pipe buffer. A
	// single-threaded drain would deadlock here.
	const perStream = 20000
	cmd := fmt.Sprintf(
		"i=0; while [ $i -lt %d ]; do echo out-$i; echo err-$i 1>&2; i=$((i+1)); done",
		perStream,
	)
	reg := testRegistry(t, step.Step{ID: 1, Name: "flood", Command: cmd})
	r := New(reg, t.TempDir())

	var mu sync.Mutex
	outSeen, errSeen := 0, 0
	sink := func(line string) {
		mu.Lock()
		switch {
		case strings.HasPrefix(line, "out-"):
			outSeen++
		case strings.HasPrefix(line, "err-"):
			errSeen++
		}
		mu.Unlock()
	}

	done := make(chan *Result, 1)
	go func() { done <- r.Execute(context.Background(), 1, sink, ModeCaptured) }()

	var res *Result
	select {
	case res = <-done:
	case <-time.After(2 * time.Minute):
		t.Fatal("captured execution deadlocked on heavy dual-stream output")
	}

	if res.Status != StatusComplete {
		t.Fatalf("status = %s: %+v", res.Status, res)
	}
	mu.Lock()
	defer mu.Unlock()
	if outSeen != perStream || errSeen != perStream {
		t.Errorf("sink got %d stdout and %d stderr lines, want %d each", outSeen, errSeen, perStream)
	}
	if n := strings.Count(res.Stdout, "\n"); n != perStream {
		t.Errorf("buffered stdout has %d lines, want %d", n, perStream)
	}
	if n := strings.Count(res.Stderr, "\n"); n != perStream {
		t.Errorf("buffered stderr has %d lines, want %d", n, perStream)
	}
}

func TestHandle_Cancel(t *testing.T) {
	reg := testRegistry(t, step.Step{ID: 1, Name: "sleeper", Command: "sleep 60"})
	r := New(reg, t.TempDir())

	h, err := r.Start(context.Background(), 1, nil, ModeCaptured)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give the shell a moment to exec sleep.
	time.Sleep(100 * time.Millisecond)
	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled process did not terminate")
	}

	res := h.Wait()
	if res.Status != StatusError {
		t.Errorf("status after cancel = %s, want error", res.Status)
	}
	// Cancel after exit is a no-op.
	if err := h.Cancel(); err != nil {
		t.Errorf("Cancel after exit errored: %v", err)
	}
}

func TestHandle_CancelKillsShellChildren(t *testing.T) {
	// "sleep 30; true" makes sh fork sleep as a child that inherits the
	// output pipes. Killing sh alone would orphan sleep, the drain
	// goroutines would never see EOF, and Wait would block until sleep
	// finished on its own.
	reg := testRegistry(t, step.Step{ID: 1, Name: "forker", Command: "sleep 30; true"})
	r := New(reg, t.TempDir())

	h, err := r.Start(context.Background(), 1, nil, ModeCaptured)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Wait hung after Cancel: child process still holds the pipes")
	}
	if res := h.Wait(); res.Status != StatusError {
		t.Errorf("status after cancel = %s, want error", res.Status)
	}
}

func TestExecute_ContextCancellationKillsShellChildren(t *testing.T) {
	reg := testRegistry(t, step.Step{ID: 1, Name: "forker", Command: "sleep 30; true"})
	r := New(reg, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan *Result, 1)
	go func() { done <- r.Execute(ctx, 1, nil, ModeCaptured) }()

	select {
	case res := <-done:
		if res.Status != StatusError {
			t.Errorf("status = %s, want error", res.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute hung after context cancellation")
	}
}

func TestRun_AdHocCommand(t *testing.T) {
	reg := testRegistry(t, step.Step{ID: 1, Name: "unused", Command: "true"})
	r := New(reg, t.TempDir())

	res := r.Run(context.Background(), "echo analysis-output", nil, ModeCaptured)
	if res.Status != StatusComplete {
		t.Fatalf("status = %s: %+v", res.Status, res)
	}
	if res.StepID != 0 {
		t.Errorf("ad-hoc run has step id %d, want 0", res.StepID)
	}
	if !strings.Contains(res.Stdout, "analysis-output") {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestExecute_ContextCancellation(t *testing.T) {
	reg := testRegistry(t, step.Step{ID: 1, Name: "sleeper", Command: "sleep 60"})
	r := New(reg, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := r.Execute(ctx, 1, nil, ModeCaptured)
	if time.Since(start) > 30*time.Second {
		t.Fatal("context cancellation did not terminate the process promptly")
	}
	if res.Status != StatusError {
		t.Errorf("status = %s, want error", res.Status)
	}
}
