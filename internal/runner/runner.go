// Package runner executes pipeline step commands through a command
// interpreter and reports structured results.
//
// Two I/O modes share one spawn/wait skeleton: interactive mode hands
// the invoking terminal to the external process so tools like pdb2gmx
// can prompt the operator, while captured mode redirects stdout and
// stderr to pipes and drains both concurrently, forwarding each line to
// an [Sink] as it arrives and buffering the full text. Both pipe
// readers run alongside the process and are joined before the result is
// produced; draining only one stream would deadlock once the external
// tool fills the other pipe's OS buffer (GROMACS writes most of its
// progress output to stderr).
//
// The runner imposes no timeout: production MD runs for hours and the
// caller owns cancellation via [Handle.Cancel] or the context.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/gmxflow/gmxflow/internal/logging"
	"github.com/gmxflow/gmxflow/internal/step"
)

// ExitSpawnFailure is the sentinel exit code reported when the external
// process never started (missing interpreter, permission failure). Real
// processes cannot exit with a negative code, so callers can always
// tell "ran and failed" from "never ran".
const ExitSpawnFailure = -1

// DefaultShell interprets step commands; it must handle shell-level
// conjunctions since several steps chain grompp && mdrun.
const DefaultShell = "sh"

// Sink receives one line of process output at a time, in the
// interleaved arrival order of the stdout and stderr streams.
type Sink func(line string)

// Mode selects how the child's standard streams are wired.
type Mode int

const (
	// ModeCaptured pipes stdout and stderr, streaming and buffering both.
	ModeCaptured Mode = iota
	// ModeInteractive inherits the invoking process's terminal; only the
	// exit code is observable.
	ModeInteractive
)

// Runner executes step commands in a working directory. The zero value
// is not usable; construct with New.
type Runner struct {
	reg     *step.Registry
	workdir string
	shell   string
	logger  *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell overrides the command interpreter (default "sh").
func WithShell(shell string) Option {
	return func(r *Runner) { r.shell = shell }
}

// WithLogger attaches a logger for execution tracing.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner over the given registry, executing commands with
// workdir as the process working directory and the parent environment
// inherited unmodified (GROMACS GPU behavior depends on it).
func New(reg *step.Registry, workdir string, opts ...Option) *Runner {
	r := &Runner{
		reg:     reg,
		workdir: workdir,
		shell:   DefaultShell,
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute resolves and runs one pipeline step, blocking until the
// process exits and both output streams are fully drained. An unknown
// ID yields an Error result without spawning anything.
func (r *Runner) Execute(ctx context.Context, id step.ID, sink Sink, mode Mode) *Result {
	s, err := r.reg.Lookup(id)
	if err != nil {
		return &Result{
			StepID:   id,
			Status:   StatusError,
			ExitCode: ExitSpawnFailure,
			Message:  fmt.Sprintf("invalid step id %d", id),
		}
	}

	emit(sink, fmt.Sprintf(">>> Executing Step %d: %s", id, s.Name))
	emit(sink, fmt.Sprintf(">>> Command: %s", s.Command))
	emit(sink, strings.Repeat("-", 60))

	res := r.Run(ctx, s.Command, sink, mode)
	res.StepID = id

	emit(sink, strings.Repeat("-", 60))
	if res.Status == StatusComplete {
		emit(sink, fmt.Sprintf(">>> Step %d completed successfully", id))
	} else {
		emit(sink, fmt.Sprintf(">>> Step %d failed with exit code %d", id, res.ExitCode))
	}
	return res
}

// Start launches a step without blocking, returning a Handle the caller
// owns. Handle.Wait delivers the same Result Execute would.
func (r *Runner) Start(ctx context.Context, id step.ID, sink Sink, mode Mode) (*Handle, error) {
	s, err := r.reg.Lookup(id)
	if err != nil {
		return nil, err
	}
	return r.start(ctx, id, s.Command, sink, mode)
}

// Run executes an arbitrary command line through the interpreter using
// the runner's working directory. The analysis tools share the step
// spawn/drain machinery through this entry point.
func (r *Runner) Run(ctx context.Context, command string, sink Sink, mode Mode) *Result {
	h, err := r.start(ctx, 0, command, sink, mode)
	if err != nil {
		return &Result{
			Status:   StatusError,
			ExitCode: ExitSpawnFailure,
			Message:  err.Error(),
		}
	}
	return h.Wait()
}

func (r *Runner) start(ctx context.Context, id step.ID, command string, sink Sink, mode Mode) (*Handle, error) {
	log := r.logger.With("command", command, "mode", mode.String())
	if id > 0 {
		log = log.WithStep(int(id))
	}

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Dir = r.workdir
	cmd.Env = os.Environ()

	h := &Handle{
		stepID: id,
		done:   make(chan struct{}),
	}

	switch mode {
	case ModeInteractive:
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	case ModeCaptured:
		// The shell runs in its own process group so cancellation can
		// reach forked children (grompp && mdrun); killing only sh would
		// leave a child holding the pipes and the drain goroutines would
		// never see EOF. Interactive mode keeps the terminal's group so
		// the operator's ctrl+C still reaches the tool directly.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Cancel = func() error {
			return killGroup(cmd.Process.Pid)
		}
		h.killsGroup = true

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
		}
		h.readers.Add(2)
		go h.drain(stdout, &h.stdout, sink)
		go h.drain(stderr, &h.stderr, sink)
	default:
		return nil, fmt.Errorf("unknown execution mode %d", mode)
	}

	log.Debug("spawning process")
	if err := cmd.Start(); err != nil {
		log.Error("spawn failed", "error", err)
		// Unblock the drain goroutines; the pipes were never connected
		// to a live process, so their readers see EOF immediately.
		res := &Result{
			StepID:   id,
			Status:   StatusError,
			ExitCode: ExitSpawnFailure,
			Message:  fmt.Sprintf("failed to start command: %v", err),
		}
		h.finish(res)
		return h, nil
	}

	h.cmd = cmd
	go func() {
		// Readers must observe EOF before Wait closes the pipes.
		h.readers.Wait()
		err := cmd.Wait()

		res := &Result{
			StepID: id,
			Stdout: h.stdout.String(),
			Stderr: h.stderr.String(),
		}
		switch {
		case err == nil:
			res.Status = StatusComplete
			res.ExitCode = 0
		default:
			res.Status = StatusError
			if exitErr, ok := err.(*exec.ExitError); ok {
				res.ExitCode = exitErr.ExitCode()
				if res.ExitCode < 0 {
					// Killed by signal (cancellation); no real exit code.
					res.Message = exitErr.Error()
				}
			} else {
				res.ExitCode = ExitSpawnFailure
				res.Message = err.Error()
			}
		}
		log.Info("process exited", "status", string(res.Status), "exit_code", res.ExitCode)
		h.finish(res)
	}()

	return h, nil
}

func emit(sink Sink, line string) {
	if sink != nil {
		sink(line)
	}
}

// String returns the mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeCaptured:
		return "captured"
	case ModeInteractive:
		return "interactive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Handle represents one in-flight execution attempt, owned by the
// caller. It replaces any notion of a process-wide current-process
// table, so multiple controllers can coexist in one program lifetime.
type Handle struct {
	stepID     step.ID
	cmd        *exec.Cmd
	killsGroup bool
	stdout     strings.Builder
	stderr     strings.Builder
	readers    sync.WaitGroup

	mu     sync.Mutex
	result *Result
	done   chan struct{}
}

// drain forwards lines from one pipe into its buffer and the sink until
// EOF, then releases its reader slot.
func (h *Handle) drain(pipe io.Reader, buf *strings.Builder, sink Sink) {
	defer h.readers.Done()
	sc := bufio.NewScanner(pipe)
	// mdrun log lines stay well under this, but grompp can echo long
	// include chains.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		emit(sink, line)
	}
}

func (h *Handle) finish(res *Result) {
	h.mu.Lock()
	h.result = res
	h.mu.Unlock()
	close(h.done)
}

// Wait blocks until the attempt reaches a terminal status and returns
// its result. It may be called multiple times.
func (h *Handle) Wait() *Result {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Done returns a channel closed once the attempt is terminal.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Cancel terminates the running process. In captured mode the whole
// process group is killed so children of multi-command steps release
// the pipes and the drain goroutines see EOF; no cooperative token is
// threaded through them. Cancel after exit is a no-op.
func (h *Handle) Cancel() error {
	h.mu.Lock()
	finished := h.result != nil
	cmd := h.cmd
	h.mu.Unlock()

	if finished || cmd == nil || cmd.Process == nil {
		return nil
	}
	var err error
	if h.killsGroup {
		err = killGroup(cmd.Process.Pid)
	} else {
		err = cmd.Process.Kill()
	}
	if err != nil && !strings.Contains(err.Error(), "already finished") {
		return fmt.Errorf("failed to kill process: %w", err)
	}
	return nil
}

// killGroup signals the process group led by pid. The group leader may
// already be gone while children linger, so ESRCH is not an error.
func killGroup(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}
