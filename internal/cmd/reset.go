package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/step"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset [step]",
	Short: "Clear completion flags",
	Long: `Clear the completion flag for one step, or every flag when no step is
given. Output files are never touched; only the pipeline's memory of
what has run is discarded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.acquireLock(); err != nil {
		return err
	}

	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step must be a number: %q", args[0])
		}
		id := step.ID(n)
		if _, err := e.registry.Lookup(id); err != nil {
			return err
		}
		if err := e.store.Clear(id); err != nil {
			return err
		}
		fmt.Printf("Cleared completion flag for step %d\n", id)
		return nil
	}

	if !resetYes && !promptYesNo("Clear ALL completion flags?") {
		fmt.Println("Aborted.")
		return nil
	}
	if err := e.controller.Reset(); err != nil {
		return err
	}
	fmt.Println("All completion flags cleared")
	return nil
}
