package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/analysis"
	"github.com/gmxflow/gmxflow/internal/runner"
)

var analyzeCaptured bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [tool]",
	Short: "Run post-simulation trajectory analysis",
	Long: `Run one of the trajectory analysis tools by number. Without an
argument, list the available tools. Analysis commands prompt for a
GROMACS group selection unless --captured is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeCaptured, "captured", false, "capture output instead of attaching to the terminal")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.acquireLock(); err != nil {
		return err
	}

	if len(args) == 0 {
		for i, tool := range analysis.Tools() {
			fmt.Printf("[%d] %-26s → %s\n", i+1, tool.Name, tool.Output)
		}
		return nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(analysis.Tools()) {
		return fmt.Errorf("tool must be 1-%d", len(analysis.Tools()))
	}

	if ready, missing := e.analysis.Ready(); !ready {
		return fmt.Errorf("missing MD output files: %s", strings.Join(missing, ", "))
	}

	mode := runner.ModeInteractive
	var sink runner.Sink
	if analyzeCaptured {
		mode = runner.ModeCaptured
		sink = func(line string) { fmt.Println(line) }
	}

	res := e.analysis.Run(cmd.Context(), n-1, sink, mode)
	if res.Run.Status != runner.StatusComplete {
		return fmt.Errorf("%s failed with exit code %d", res.Tool.Name, res.Run.ExitCode)
	}
	fmt.Printf("%s complete: %s\n", res.Tool.Name, res.OutputFile)
	return nil
}
