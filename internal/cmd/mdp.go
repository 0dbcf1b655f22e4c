package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/mdp"
)

var mdpCmd = &cobra.Command{
	Use:   "mdp [name...]",
	Short: "Generate GROMACS .mdp parameter files",
	Long: `Render .mdp parameter files into the working directory from the
simulation settings. Without arguments all templates are written;
names (` + strings.Join(mdp.Names(), ", ") + `) select specific ones.`,
	RunE: runMdp,
}

func init() {
	rootCmd.AddCommand(mdpCmd)
}

func runMdp(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.acquireLock(); err != nil {
		return err
	}

	if len(args) == 0 {
		results := mdp.GenerateAll(e.settings, e.workdir)
		files := make([]string, 0, len(results))
		for file := range results {
			files = append(files, file)
		}
		sort.Strings(files)

		var failed bool
		for _, file := range files {
			if err := results[file]; err != nil {
				failed = true
				fmt.Printf("%-12s %v\n", file, err)
			} else {
				fmt.Printf("%-12s written\n", file)
			}
		}
		if failed {
			return fmt.Errorf("some templates failed")
		}
		return nil
	}

	for _, name := range args {
		out := name + ".mdp"
		if err := mdp.Generate(name, e.settings, filepath.Join(e.workdir, out)); err != nil {
			return err
		}
		fmt.Printf("%s written\n", out)
	}
	return nil
}
