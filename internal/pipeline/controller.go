package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gmxflow/gmxflow/internal/logging"
	"github.com/gmxflow/gmxflow/internal/runner"
	"github.com/gmxflow/gmxflow/internal/state"
	"github.com/gmxflow/gmxflow/internal/step"
)

// BlockedError reports a step whose prerequisites are not complete.
// Fully recoverable: run the missing steps and try again.
type BlockedError struct {
	StepID   step.ID
	StepName string
	// Missing lists the incomplete prerequisites in declared order.
	Missing []step.ID
}

func (e *BlockedError) Error() string {
	names := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		names[i] = id.String()
	}
	return fmt.Sprintf("step %d (%s) blocked: requires %s", e.StepID, e.StepName, strings.Join(names, ", "))
}

// ErrDeclined is returned when the caller's confirmation hook refused a
// resume-conflict or manual-intervention prompt. Nothing was executed.
var ErrDeclined = fmt.Errorf("execution declined by operator")

// Controller composes the registry, completion store, resume detector,
// and runner into the pipeline's control flow. A single goroutine
// drives it; steps never overlap because downstream steps consume
// upstream output files.
type Controller struct {
	reg    *step.Registry
	store  *state.Store
	detect *state.Detector
	run    *runner.Runner
	logger *logging.Logger
}

// NewController wires a Controller for one working directory.
func NewController(reg *step.Registry, store *state.Store, detect *state.Detector, run *runner.Runner, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Controller{reg: reg, store: store, detect: detect, run: run, logger: logger}
}

// Gate evaluates the dependency gate for a step: canRun is true iff
// every prerequisite has a durable completion record. The missing set
// preserves declared prerequisite order.
func (c *Controller) Gate(id step.ID) (canRun bool, missing []step.ID, err error) {
	if _, err := c.reg.Lookup(id); err != nil {
		return false, nil, err
	}
	for _, p := range c.reg.Prerequisites(id) {
		if !c.store.IsComplete(p) {
			missing = append(missing, p)
		}
	}
	return len(missing) == 0, missing, nil
}

// Preview describes what running a step would do, without doing it.
type Preview struct {
	Step     step.Step
	CanRun   bool
	Missing  []step.ID
	Complete bool
	// ExistingOutputs lists declared outputs already on disk that a
	// fresh run might clobber.
	ExistingOutputs []string
	// MissingInputs lists declared inputs absent from the directory.
	MissingInputs []string
}

// Preview assembles the dry view of one step. It never creates,
// modifies, or deletes any file and never spawns a process.
func (c *Controller) Preview(id step.ID) (*Preview, error) {
	s, err := c.reg.Lookup(id)
	if err != nil {
		return nil, err
	}
	canRun, missing, err := c.Gate(id)
	if err != nil {
		return nil, err
	}
	_, existing := c.detect.OutputsExist(s)
	return &Preview{
		Step:            s,
		CanRun:          canRun,
		Missing:         missing,
		Complete:        c.store.IsComplete(id),
		ExistingOutputs: existing,
		MissingInputs:   c.detect.MissingInputs(s),
	}, nil
}

// RunOptions controls one RunStep or RunAll invocation.
type RunOptions struct {
	// Sink receives header and output lines during captured execution.
	Sink runner.Sink
	// DryRun previews instead of executing; no process is spawned and
	// no state is mutated.
	DryRun bool
	// ConfirmOverwrite is consulted when declared outputs already exist.
	// Nil means proceed without asking; returning false aborts with
	// ErrDeclined.
	ConfirmOverwrite func(existing []string) bool
	// ConfirmManual is consulted for steps declaring a manual
	// intervention, before execution. Nil means proceed.
	ConfirmManual func(m step.ManualIntervention) bool
	// ForceCaptured runs interactive steps in captured mode anyway,
	// for callers that cannot cede the terminal.
	ForceCaptured bool
	// ContinueOnError keeps a batch run going past failed steps instead
	// of halting. Steps downstream of a failure stay gated and are
	// reported as blocked.
	ContinueOnError bool
}

// RunStep executes one step through the full control flow. On success
// the completion record is written; any failure leaves the store
// untouched. Returned errors are structured (BlockedError, ErrDeclined,
// step.ErrNotFound); process failures come back as an Error-status
// result with a nil error.
func (c *Controller) RunStep(ctx context.Context, id step.ID, opts RunOptions) (*runner.Result, error) {
	s, err := c.reg.Lookup(id)
	if err != nil {
		return nil, err
	}
	log := c.logger.WithStep(int(id))

	canRun, missing, err := c.Gate(id)
	if err != nil {
		return nil, err
	}
	if !canRun {
		log.Warn("step blocked", "missing", fmt.Sprint(missing))
		return nil, &BlockedError{StepID: id, StepName: s.Name, Missing: missing}
	}

	if opts.DryRun {
		c.emitPreview(s, opts.Sink)
		return nil, nil
	}

	if any, existing := c.detect.OutputsExist(s); any && opts.ConfirmOverwrite != nil {
		if !opts.ConfirmOverwrite(existing) {
			log.Info("run declined, outputs exist", "existing", strings.Join(existing, ","))
			return nil, ErrDeclined
		}
	}
	if s.Manual != nil && opts.ConfirmManual != nil {
		if !opts.ConfirmManual(*s.Manual) {
			log.Info("run declined at manual intervention prompt")
			return nil, ErrDeclined
		}
	}

	mode := runner.ModeCaptured
	if s.Interactive && !opts.ForceCaptured {
		mode = runner.ModeInteractive
	}

	log.Info("dispatching step", "name", s.Name, "mode", mode.String())
	res := c.run.Execute(ctx, id, opts.Sink, mode)

	if res.Status == runner.StatusComplete {
		if err := c.store.MarkComplete(id); err != nil {
			return res, fmt.Errorf("step %d (%s) succeeded but marking completion failed: %w", id, s.Name, err)
		}
		log.Info("step complete")
	} else {
		log.Error("step failed", "exit_code", res.ExitCode, "message", res.Message)
	}
	return res, nil
}

// BatchResult summarizes a RunAll invocation.
type BatchResult struct {
	// Ran lists steps executed this invocation, in order.
	Ran []step.ID
	// Skipped lists steps bypassed because they were already complete.
	Skipped []step.ID
	// Failed lists steps whose attempt ended in error when the batch
	// continued past failures.
	Failed []step.ID
	// Blocked lists steps the gate refused when the batch continued
	// past failures (their prerequisites never completed).
	Blocked []step.ID
	// Halted names the step whose failure stopped the batch, if any.
	Halted *step.ID
	// Failure is that step's result (or nil when Halted is set because
	// the step could not even be dispatched).
	Failure *runner.Result
	// Err carries the dispatch error that halted the batch, if any.
	Err error
}

// RunAll executes the whole catalog in declared order, skipping steps
// that are already complete. A failing step halts the batch unless
// opts.ContinueOnError is set, in which case the failure is recorded
// and the remaining steps are attempted (those gated on the failed
// step report as blocked). With opts.DryRun every step is previewed
// and nothing is mutated.
func (c *Controller) RunAll(ctx context.Context, opts RunOptions) *BatchResult {
	batch := &BatchResult{}
	for _, s := range c.reg.All() {
		if opts.DryRun {
			c.emitPreview(s, opts.Sink)
			continue
		}
		if c.store.IsComplete(s.ID) {
			batch.Skipped = append(batch.Skipped, s.ID)
			continue
		}

		res, err := c.RunStep(ctx, s.ID, opts)
		if err != nil {
			var blocked *BlockedError
			if opts.ContinueOnError && errors.As(err, &blocked) {
				batch.Blocked = append(batch.Blocked, s.ID)
				continue
			}
			id := s.ID
			batch.Halted = &id
			batch.Err = err
			return batch
		}
		batch.Ran = append(batch.Ran, s.ID)
		if res.Status != runner.StatusComplete {
			if opts.ContinueOnError {
				batch.Failed = append(batch.Failed, s.ID)
				continue
			}
			id := s.ID
			batch.Halted = &id
			batch.Failure = res
			return batch
		}
	}
	return batch
}

func (c *Controller) emitPreview(s step.Step, sink runner.Sink) {
	if sink == nil {
		return
	}
	sink(fmt.Sprintf("DRY-RUN Step %d: %s", s.ID, s.Name))
	sink(fmt.Sprintf("  Command: %s", s.Command))
	if len(s.Produces) > 0 {
		sink(fmt.Sprintf("  Would produce: %s", strings.Join(s.Produces, ", ")))
	}
}

// Reset clears every completion record, returning all steps to Pending.
func (c *Controller) Reset() error {
	c.logger.Info("clearing all completion records")
	return c.store.ClearAll()
}
