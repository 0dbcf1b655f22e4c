package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/tui"
)

func runDashboard(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.acquireLock(); err != nil {
		return err
	}

	model := tui.NewModel(tui.Deps{
		Config:     e.cfg,
		Registry:   e.registry,
		Controller: e.controller,
		Store:      e.store,
		Detector:   e.detector,
		Settings:   e.settings,
		Analysis:   e.analysis,
		Visualize:  e.visualize,
		Logger:     e.logger,
		Workdir:    e.workdir,
	})

	app := tui.New(model)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
