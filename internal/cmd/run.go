package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/pipeline"
	"github.com/gmxflow/gmxflow/internal/runner"
	"github.com/gmxflow/gmxflow/internal/step"
)

var (
	runDryRun   bool
	runYes      bool
	runCaptured bool
)

var runCmd = &cobra.Command{
	Use:   "run <step|all>",
	Short: "Run one pipeline step or the full pipeline",
	Long: `Run a single pipeline step by number, or the whole pipeline with 'all'.
Steps whose prerequisites have not completed are refused. A full run
skips already-completed steps and halts at the first failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "preview commands without executing anything")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "skip confirmation prompts")
	runCmd.Flags().BoolVar(&runCaptured, "captured", false, "run interactive steps with output captured instead of attached to the terminal")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.acquireLock(); err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		Sink:            func(line string) { fmt.Println(line) },
		DryRun:          runDryRun,
		ForceCaptured:   runCaptured,
		ContinueOnError: !e.cfg.Run.HaltOnError,
	}
	if !runYes && e.cfg.Run.ConfirmOverwrite {
		opts.ConfirmOverwrite = confirmOverwrite
	}
	if !runYes {
		opts.ConfirmManual = confirmManual
	}

	ctx := cmd.Context()
	if strings.EqualFold(args[0], "all") {
		return runAll(ctx, e, opts)
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("step must be a number or 'all': %q", args[0])
	}
	return runOne(ctx, e, step.ID(n), opts)
}

func runOne(ctx context.Context, e *env, id step.ID, opts pipeline.RunOptions) error {
	res, err := e.controller.RunStep(ctx, id, opts)
	switch {
	case errors.Is(err, pipeline.ErrDeclined):
		fmt.Println("Aborted.")
		return nil
	case err != nil:
		return err
	case res == nil:
		// Dry run.
		return nil
	case res.Status != runner.StatusComplete:
		return fmt.Errorf("step %d failed with exit code %d", id, res.ExitCode)
	}
	return nil
}

func runAll(ctx context.Context, e *env, opts pipeline.RunOptions) error {
	batch := e.controller.RunAll(ctx, opts)

	if len(batch.Skipped) > 0 {
		ids := make([]string, len(batch.Skipped))
		for i, id := range batch.Skipped {
			ids[i] = strconv.Itoa(int(id))
		}
		fmt.Printf("Skipped already-completed steps: %s\n", strings.Join(ids, ", "))
	}
	if batch.Halted != nil {
		if batch.Err != nil {
			return fmt.Errorf("pipeline halted at step %d: %w", *batch.Halted, batch.Err)
		}
		return fmt.Errorf("pipeline halted at step %d (exit code %d)", *batch.Halted, batch.Failure.ExitCode)
	}
	if len(batch.Failed) > 0 || len(batch.Blocked) > 0 {
		for _, id := range batch.Failed {
			fmt.Printf("Step %d failed\n", id)
		}
		for _, id := range batch.Blocked {
			fmt.Printf("Step %d blocked on incomplete prerequisites\n", id)
		}
		return fmt.Errorf("pipeline finished with %d failed and %d blocked step(s)",
			len(batch.Failed), len(batch.Blocked))
	}
	if !opts.DryRun {
		fmt.Printf("Pipeline finished: %d step(s) run, %d skipped\n", len(batch.Ran), len(batch.Skipped))
	}
	return nil
}

func confirmOverwrite(existing []string) bool {
	fmt.Printf("Output files already exist: %s\n", strings.Join(existing, ", "))
	return promptYesNo("Re-run and overwrite them?")
}

func confirmManual(mi step.ManualIntervention) bool {
	fmt.Printf("Manual intervention required. Edit %s:\n", mi.File)
	for _, action := range mi.Actions {
		fmt.Printf("  - %s\n", action)
	}
	return promptYesNo("Done editing, proceed?")
}

func promptYesNo(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
