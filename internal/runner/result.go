package runner

import "github.com/gmxflow/gmxflow/internal/step"

// Status is the lifecycle state of one execution attempt.
type Status string

const (
	// StatusPending means no attempt has been dispatched.
	StatusPending Status = "pending"
	// StatusRunning means the process has been spawned and has no
	// terminal result yet.
	StatusRunning Status = "running"
	// StatusComplete means the process exited 0.
	StatusComplete Status = "complete"
	// StatusError means the process exited nonzero or never started.
	StatusError Status = "error"
)

// IsTerminal reports whether the status ends an attempt. Only Complete
// is durable across restarts; Error is forgotten and the next attempt
// starts a fresh Pending→Running cycle.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// Result is the outcome of one execution attempt.
type Result struct {
	// StepID is the step this attempt ran, 0 for ad-hoc commands.
	StepID step.ID
	// Status is Complete or Error; Results are only produced for
	// terminal attempts.
	Status Status
	// ExitCode is the process exit code, or ExitSpawnFailure when the
	// process never started or was killed by a signal.
	ExitCode int
	// Stdout and Stderr hold the captured output text. Empty in
	// interactive mode, where the operator saw it on the terminal.
	Stdout string
	Stderr string
	// Message carries a human-readable error detail for failures that
	// happened before or independent of process exit.
	Message string
}
