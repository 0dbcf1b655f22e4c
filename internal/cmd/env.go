package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gmxflow/gmxflow/internal/analysis"
	"github.com/gmxflow/gmxflow/internal/config"
	"github.com/gmxflow/gmxflow/internal/filelock"
	"github.com/gmxflow/gmxflow/internal/logging"
	"github.com/gmxflow/gmxflow/internal/pipeline"
	"github.com/gmxflow/gmxflow/internal/runner"
	"github.com/gmxflow/gmxflow/internal/settings"
	"github.com/gmxflow/gmxflow/internal/state"
	"github.com/gmxflow/gmxflow/internal/step"
	"github.com/gmxflow/gmxflow/internal/visualize"
)

// env bundles the wired components every command operates on.
type env struct {
	cfg        *config.Config
	workdir    string
	registry   *step.Registry
	store      *state.Store
	detector   *state.Detector
	runner     *runner.Runner
	controller *pipeline.Controller
	settings   *settings.Settings
	analysis   *analysis.Runner
	visualize  *visualize.Launcher
	logger     *logging.Logger
	lock       *filelock.Lock
}

// newEnv resolves the working directory and wires the pipeline stack
// for it. Close releases the log file.
func newEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	workdir := cfg.Paths.ResolveWorkdir(cwd)
	if info, err := os.Stat(workdir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("working directory does not exist: %s", workdir)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		l, err := logging.NewLogger(filepath.Join(workdir, state.Dir), cfg.Logging.Level)
		if err == nil {
			logger = l
		}
	}

	reg := step.DefaultRegistry()
	store := state.NewStore(workdir)
	detect := state.NewDetector(workdir)
	run := runner.New(reg, workdir, runner.WithShell(cfg.Run.Shell), runner.WithLogger(logger))

	sett, err := settings.Open(workdir)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &env{
		cfg:        cfg,
		workdir:    workdir,
		registry:   reg,
		store:      store,
		detector:   detect,
		runner:     run,
		controller: pipeline.NewController(reg, store, detect, run, logger),
		settings:   sett,
		analysis:   analysis.NewRunner(workdir, run),
		visualize:  visualize.NewLauncher(workdir),
		logger:     logger,
	}, nil
}

// acquireLock takes the session lock so no other gmxflow process can
// mutate this working directory's state concurrently. Commands that
// only read state skip it.
func (e *env) acquireLock() error {
	lock, err := filelock.Acquire(filepath.Join(e.workdir, state.Dir))
	if err != nil {
		return err
	}
	e.lock = lock
	return nil
}

func (e *env) Close() {
	if e.lock != nil {
		_ = e.lock.Release()
	}
	if e.logger != nil {
		_ = e.logger.Close()
	}
}
