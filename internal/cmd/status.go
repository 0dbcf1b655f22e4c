package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/fsutil"
	"github.com/gmxflow/gmxflow/internal/step"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-step pipeline status",
	Long: `Display the completion state of every pipeline step in the working
directory. With --watch, keep running and print updates whenever another
process changes a completion flag.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "keep watching for completion changes")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	printStatus(e)

	if !statusWatch {
		return nil
	}

	w, err := e.store.Watch()
	if err != nil {
		return fmt.Errorf("failed to watch completion flags: %w", err)
	}
	defer w.Close()

	fmt.Println("\nWatching for changes (ctrl+c to stop)...")
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			verb := "cleared"
			if ev.Completed {
				verb = "completed"
			}
			fmt.Printf("step %d %s\n", ev.StepID, verb)
		}
	}
}

func printStatus(e *env) {
	fmt.Printf("Working directory: %s\n\n", e.workdir)

	for _, s := range e.registry.All() {
		marker := "[ ]"
		detail := ""
		switch {
		case e.store.IsComplete(s.ID):
			marker = "[x]"
			if at, ok := e.store.CompletedAt(s.ID); ok {
				detail = "completed " + at.Format("2006-01-02 15:04:05")
			}
		default:
			if canRun, missing, err := e.controller.Gate(s.ID); err == nil && !canRun {
				ids := make([]string, len(missing))
				for i, id := range missing {
					ids[i] = fmt.Sprint(id)
				}
				detail = "blocked on " + strings.Join(ids, ", ")
			} else if any, outputs := e.detector.OutputsExist(s); any {
				detail = "outputs present: " + strings.Join(outputs, ", ")
			}
		}

		fmt.Printf("%s %d. %s", marker, s.ID, s.Name)
		if detail != "" {
			fmt.Printf("  (%s)", detail)
		}
		fmt.Println()
	}

	if _, missing := fsutil.CheckFiles(e.workdir, step.MandatoryInputs); len(missing) > 0 {
		fmt.Printf("\nMissing input files: %s\n", strings.Join(missing, ", "))
	}
}
