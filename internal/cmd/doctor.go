package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/fsutil"
	"github.com/gmxflow/gmxflow/internal/step"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check external tools and input files",
	Long: `Verify that GROMACS and the optional visualization tools are on PATH,
and that the mandatory input files are present in the working directory.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Run.GmxCheckTimeout())
	defer cancel()

	healthy := true

	ok, msg := fsutil.GromacsAvailable(ctx)
	fmt.Println(mark(ok), msg)
	healthy = healthy && ok

	if ok, path := fsutil.ToolAvailable("vmd"); ok {
		fmt.Println(mark(true), "VMD found:", path)
	} else {
		// Visualization is optional; note it without failing.
		fmt.Println(mark(false), "VMD not found (visualization unavailable)")
	}
	if ok, tool := e.visualize.GraceAvailable(); ok {
		fmt.Println(mark(true), tool, "found")
	} else {
		fmt.Println(mark(false), "xmgrace not found (plotting unavailable)")
	}

	fmt.Printf("\nInput files in %s:\n", e.workdir)
	found, missing := fsutil.CheckFiles(e.workdir, step.MandatoryInputs)
	for _, name := range found {
		fmt.Println(mark(true), name)
	}
	for _, name := range missing {
		fmt.Println(mark(false), name)
	}
	if len(missing) > 0 {
		healthy = false
	}

	if !healthy {
		return fmt.Errorf("environment is not ready")
	}
	fmt.Println("\nAll checks passed")
	return nil
}

func mark(ok bool) string {
	if ok {
		return "[ok]"
	}
	return "[!!]"
}
