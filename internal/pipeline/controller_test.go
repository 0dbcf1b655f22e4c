package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gmxflow/gmxflow/internal/logging"
	"github.com/gmxflow/gmxflow/internal/runner"
	"github.com/gmxflow/gmxflow/internal/state"
	"github.com/gmxflow/gmxflow/internal/step"
)

// =============================================================================
// Test Helpers
// =============================================================================

type fixture struct {
	dir   string
	reg   *step.Registry
	store *state.Store
	ctrl  *Controller
}

func newFixture(t *testing.T, steps []step.Step, prereqs map[step.ID][]step.ID) *fixture {
	t.Helper()
	dir := t.TempDir()
	reg, err := step.NewRegistry(steps, prereqs)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	store := state.NewStore(dir)
	detect := state.NewDetector(dir)
	run := runner.New(reg, dir)
	return &fixture{
		dir:   dir,
		reg:   reg,
		store: store,
		ctrl:  NewController(reg, store, detect, run, logging.NopLogger()),
	}
}

func chainSteps() ([]step.Step, map[step.ID][]step.ID) {
	steps := []step.Step{
		{ID: 1, Name: "first", Command: "true", Produces: []string{"a.out"}},
		{ID: 2, Name: "second", Command: "true", Produces: []string{"b.out"}},
		{ID: 3, Name: "third", Command: "true"},
	}
	return steps, map[step.ID][]step.ID{2: {1}, 3: {2}}
}

// snapshot records every path and mtime under dir, for dry-run purity checks.
func snapshot(t *testing.T, dir string) map[string]time.Time {
	t.Helper()
	seen := map[string]time.Time{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		seen[path] = info.ModTime()
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	return seen
}

// =============================================================================
// Gate Tests
// =============================================================================

func TestGate_MissingPrerequisitesInDeclaredOrder(t *testing.T) {
	steps := []step.Step{
		{ID: 1, Name: "a", Command: "true"},
		{ID: 2, Name: "b", Command: "true"},
		{ID: 3, Name: "c", Command: "true"},
		{ID: 4, Name: "d", Command: "true"},
	}
	f := newFixture(t, steps, map[step.ID][]step.ID{4: {3, 1, 2}})

	canRun, missing, err := f.ctrl.Gate(4)
	if err != nil {
		t.Fatalf("Gate failed: %v", err)
	}
	if canRun {
		t.Fatal("gate open with no prerequisites complete")
	}
	want := []step.ID{3, 1, 2}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("missing = %v, want declared order %v", missing, want)
		}
	}

	// Completing a subset shrinks the missing set to exactly the
	// incomplete remainder, still in declared order.
	if err := f.store.MarkComplete(1); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	_, missing, _ = f.ctrl.Gate(4)
	if len(missing) != 2 || missing[0] != 3 || missing[1] != 2 {
		t.Errorf("missing = %v, want [3 2]", missing)
	}
}

func TestGate_ReEvaluatedEveryRequest(t *testing.T) {
	steps, prereqs := chainSteps()
	f := newFixture(t, steps, prereqs)

	if canRun, _, _ := f.ctrl.Gate(2); canRun {
		t.Fatal("gate open before prerequisite complete")
	}

	// A different session completes step 1 in the same directory.
	other := state.NewStore(f.dir)
	if err := other.MarkComplete(1); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}

	if canRun, _, _ := f.ctrl.Gate(2); !canRun {
		t.Fatal("gate did not observe completion from another session")
	}
}

func TestGate_UnknownStep(t *testing.T) {
	steps, prereqs := chainSteps()
	f := newFixture(t, steps, prereqs)

	if _, _, err := f.ctrl.Gate(99); !errors.Is(err, step.ErrNotFound) {
		t.Fatalf("Gate(99) error = %v, want ErrNotFound", err)
	}
}

// =============================================================================
// RunStep Tests
// =============================================================================

func TestRunStep_SuccessMarksComplete(t *testing.T) {
	steps, prereqs := chainSteps()
	f := newFixture(t, steps, prereqs)

	res, err := f.ctrl.RunStep(context.Background(), 1, RunOptions{})
	if err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	if res.Status != runner.StatusComplete {
		t.Fatalf("status = %s: %+v", res.Status, res)
	}
	if !f.store.IsComplete(1) {
		t.Fatal("no completion record after successful step")
	}
}

func TestRunStep_BlockedReportsMissing(t *testing.T) {
	steps, prereqs := chainSteps()
	f := newFixture(t, steps, prereqs)

	_, err := f.ctrl.RunStep(context.Background(), 2, RunOptions{})
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("error = %v, want BlockedError", err)
	}
	if blocked.StepID != 2 || blocked.StepName != "second" {
		t.Errorf("blocked step attribution = %d %q", blocked.StepID, blocked.StepName)
	}
	if len(blocked.Missing) != 1 || blocked.Missing[0] != 1 {
		t.Errorf("missing = %v, want [1]", blocked.Missing)
	}
}

func TestRunStep_FailureLeavesNoRecord(t *testing.T) {
	steps := []step.Step{{ID: 1, Name: "fails", Command: "exit 3"}}
	f := newFixture(t, steps, nil)

	res, err := f.ctrl.RunStep(context.Background(), 1, RunOptions{})
	if err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	if res.Status != runner.StatusError || res.ExitCode != 3 {
		t.Fatalf("got status=%s exit=%d, want error/3", res.Status, res.ExitCode)
	}
	if f.store.IsComplete(1) {
		t.Fatal("completion record written for a failed step")
	}
}

func TestRunStep_OverwriteConfirmation(t *testing.T) {
	steps := []step.Step{{ID: 1, Name: "writer", Command: "true", Produces: []string{"a.out"}}}
	f := newFixture(t, steps, nil)

	if err := os.WriteFile(filepath.Join(f.dir, "a.out"), []byte("old"), 0644); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	var asked []string
	_, err := f.ctrl.RunStep(context.Background(), 1, RunOptions{
		ConfirmOverwrite: func(existing []string) bool {
			asked = existing
			return false
		},
	})
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("error = %v, want ErrDeclined", err)
	}
	if len(asked) != 1 || asked[0] != "a.out" {
		t.Errorf("confirmation saw %v, want [a.out]", asked)
	}
	if f.store.IsComplete(1) {
		t.Fatal("declined run still marked complete")
	}

	// Confirming proceeds.
	res, err := f.ctrl.RunStep(context.Background(), 1, RunOptions{
		ConfirmOverwrite: func([]string) bool { return true },
	})
	if err != nil || res.Status != runner.StatusComplete {
		t.Fatalf("confirmed run: res=%+v err=%v", res, err)
	}
}

func TestRunStep_ManualInterventionPrompt(t *testing.T) {
	steps := []step.Step{{
		ID: 1, Name: "solvate", Command: "true",
		Manual: &step.ManualIntervention{File: "topol.top", Actions: []string{"add include"}},
	}}
	f := newFixture(t, steps, nil)

	var prompted *step.ManualIntervention
	_, err := f.ctrl.RunStep(context.Background(), 1, RunOptions{
		ConfirmManual: func(m step.ManualIntervention) bool {
			prompted = &m
			return false
		},
	})
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("error = %v, want ErrDeclined", err)
	}
	if prompted == nil || prompted.File != "topol.top" {
		t.Errorf("manual prompt = %+v", prompted)
	}
}

func TestRunStep_UnknownStep(t *testing.T) {
	steps, prereqs := chainSteps()
	f := newFixture(t, steps, prereqs)

	if _, err := f.ctrl.RunStep(context.Background(), 42, RunOptions{}); !errors.Is(err, step.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

// =============================================================================
// Dry-Run Tests
// =============================================================================

func TestDryRun_PureForAnyState(t *testing.T) {
	steps := []step.Step{
		{ID: 1, Name: "a", Command: "echo should-not-run > dry_run_leak", Produces: []string{"a.out"}},
		{ID: 2, Name: "b", Command: "echo should-not-run > dry_run_leak"},
	}
	f := newFixture(t, steps, map[step.ID][]step.ID{2: {1}})

	// Exercise against a non-trivial directory state: one marker, one
	// leftover output.
	if err := f.store.MarkComplete(1); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.dir, "a.out"), []byte("x"), 0644); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	before := snapshot(t, f.dir)

	var lines []string
	sink := func(l string) { lines = append(lines, l) }

	if res, err := f.ctrl.RunStep(context.Background(), 2, RunOptions{DryRun: true, Sink: sink}); err != nil || res != nil {
		t.Fatalf("dry RunStep: res=%v err=%v", res, err)
	}
	batch := f.ctrl.RunAll(context.Background(), RunOptions{DryRun: true, Sink: sink})
	if batch.Halted != nil || len(batch.Ran) != 0 {
		t.Fatalf("dry RunAll mutated batch state: %+v", batch)
	}

	if len(lines) == 0 {
		t.Fatal("dry run produced no preview output")
	}
	if _, err := os.Stat(filepath.Join(f.dir, "dry_run_leak")); !os.IsNotExist(err) {
		t.Fatal("dry run spawned the step command")
	}

	after := snapshot(t, f.dir)
	if len(before) != len(after) {
		t.Fatalf("dry run changed file count: %d -> %d", len(before), len(after))
	}
	for path, mtime := range before {
		got, ok := after[path]
		if !ok {
			t.Errorf("dry run removed %s", path)
			continue
		}
		if !got.Equal(mtime) {
			t.Errorf("dry run touched %s", path)
		}
	}
}

func TestPreview_ReportsEverything(t *testing.T) {
	steps := []step.Step{
		{ID: 1, Name: "a", Command: "true"},
		{ID: 2, Name: "b", Command: "true", Produces: []string{"b.out"}, Requires: []string{"a.in"}},
	}
	f := newFixture(t, steps, map[step.ID][]step.ID{2: {1}})
	if err := os.WriteFile(filepath.Join(f.dir, "b.out"), []byte("x"), 0644); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	p, err := f.ctrl.Preview(2)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if p.CanRun {
		t.Error("preview reports runnable despite missing prerequisite")
	}
	if len(p.Missing) != 1 || p.Missing[0] != 1 {
		t.Errorf("Missing = %v, want [1]", p.Missing)
	}
	if len(p.ExistingOutputs) != 1 || p.ExistingOutputs[0] != "b.out" {
		t.Errorf("ExistingOutputs = %v, want [b.out]", p.ExistingOutputs)
	}
	if len(p.MissingInputs) != 1 || p.MissingInputs[0] != "a.in" {
		t.Errorf("MissingInputs = %v, want [a.in]", p.MissingInputs)
	}
}

// =============================================================================
// RunAll Tests
// =============================================================================

func TestRunAll_SkipsCompleteHaltsOnError(t *testing.T) {
	steps := []step.Step{
		{ID: 1, Name: "done-already", Command: "true"},
		{ID: 2, Name: "works", Command: "true"},
		{ID: 3, Name: "breaks", Command: "exit 5"},
		{ID: 4, Name: "never-reached", Command: "true"},
	}
	prereqs := map[step.ID][]step.ID{2: {1}, 3: {2}, 4: {3}}
	f := newFixture(t, steps, prereqs)

	if err := f.store.MarkComplete(1); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}

	batch := f.ctrl.RunAll(context.Background(), RunOptions{})

	if len(batch.Skipped) != 1 || batch.Skipped[0] != 1 {
		t.Errorf("Skipped = %v, want [1]", batch.Skipped)
	}
	if len(batch.Ran) != 2 || batch.Ran[0] != 2 || batch.Ran[1] != 3 {
		t.Errorf("Ran = %v, want [2 3]", batch.Ran)
	}
	if batch.Halted == nil || *batch.Halted != 3 {
		t.Fatalf("Halted = %v, want step 3", batch.Halted)
	}
	if batch.Failure == nil || batch.Failure.ExitCode != 5 {
		t.Errorf("Failure = %+v, want exit code 5", batch.Failure)
	}
	if f.store.IsComplete(3) || f.store.IsComplete(4) {
		t.Error("failed or unreached steps have completion records")
	}
	if !f.store.IsComplete(2) {
		t.Error("successful step 2 lost its completion record")
	}
}

func TestRunAll_ContinueOnErrorRecordsFailures(t *testing.T) {
	steps := []step.Step{
		{ID: 1, Name: "works", Command: "true"},
		{ID: 2, Name: "breaks", Command: "exit 5"},
		{ID: 3, Name: "gated-on-failure", Command: "true"},
		{ID: 4, Name: "independent", Command: "true"},
	}
	prereqs := map[step.ID][]step.ID{2: {1}, 3: {2}}
	f := newFixture(t, steps, prereqs)

	batch := f.ctrl.RunAll(context.Background(), RunOptions{ContinueOnError: true})

	if batch.Halted != nil {
		t.Fatalf("Halted = %v, want nil with ContinueOnError", *batch.Halted)
	}
	if len(batch.Failed) != 1 || batch.Failed[0] != 2 {
		t.Errorf("Failed = %v, want [2]", batch.Failed)
	}
	// Step 3 depends on the failed step, so the gate refuses it; step 4
	// has no prerequisites and still runs.
	if len(batch.Blocked) != 1 || batch.Blocked[0] != 3 {
		t.Errorf("Blocked = %v, want [3]", batch.Blocked)
	}
	if len(batch.Ran) != 3 || batch.Ran[2] != 4 {
		t.Errorf("Ran = %v, want [1 2 4]", batch.Ran)
	}
	if !f.store.IsComplete(4) {
		t.Error("step 4 did not run to completion after the failure")
	}
	if f.store.IsComplete(2) || f.store.IsComplete(3) {
		t.Error("failed or blocked steps have completion records")
	}
}

// =============================================================================
// End-to-End Scenario
// =============================================================================

func TestEndToEnd_GateCompletionAndReset(t *testing.T) {
	steps := []step.Step{
		{ID: 1, Name: "A", Command: "true"},
		// Two-stage conjunction: first stage succeeds, second exits 2.
		{ID: 2, Name: "B", Command: "true && exit 2"},
	}
	f := newFixture(t, steps, map[step.ID][]step.ID{2: {1}})
	ctx := context.Background()

	// B before A: blocked with missing=[A].
	_, err := f.ctrl.RunStep(ctx, 2, RunOptions{})
	var blocked *BlockedError
	if !errors.As(err, &blocked) || len(blocked.Missing) != 1 || blocked.Missing[0] != 1 {
		t.Fatalf("B before A: err=%v", err)
	}

	// A runs and exits 0.
	res, err := f.ctrl.RunStep(ctx, 1, RunOptions{})
	if err != nil || res.Status != runner.StatusComplete {
		t.Fatalf("A: res=%+v err=%v", res, err)
	}
	if !f.store.IsComplete(1) {
		t.Fatal("no completion record for A")
	}

	// B now passes the gate but fails with exit code 2.
	if canRun, _, _ := f.ctrl.Gate(2); !canRun {
		t.Fatal("B still blocked after A completed")
	}
	res, err = f.ctrl.RunStep(ctx, 2, RunOptions{})
	if err != nil {
		t.Fatalf("B dispatch failed: %v", err)
	}
	if res.Status != runner.StatusError || res.ExitCode != 2 {
		t.Fatalf("B: status=%s exit=%d, want error/2", res.Status, res.ExitCode)
	}
	if f.store.IsComplete(2) {
		t.Fatal("completion record written for failed B")
	}

	// Reset returns both to pending.
	if err := f.ctrl.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if f.store.IsComplete(1) || f.store.IsComplete(2) {
		t.Fatal("steps still complete after reset")
	}
}
