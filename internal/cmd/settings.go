package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gmxflow/gmxflow/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings [key] [value]",
	Short: "Show or change simulation settings",
	Long: `Without arguments, list the simulation parameters for the working
directory. With a key and value, update that parameter and persist it.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	switch len(args) {
	case 0:
		for _, key := range settings.Keys() {
			fmt.Printf("%-16s %v\n", key, e.settings.Get(key))
		}
		fmt.Printf("\nProduction MD: %d steps (%.2f ns at %.3f ps/step)\n",
			e.settings.MDSteps(), e.settings.MDLengthNS(), e.settings.Timestep())
		return nil

	case 1:
		key := args[0]
		if !slices.Contains(settings.Keys(), key) {
			return fmt.Errorf("unknown setting %q", key)
		}
		fmt.Printf("%v\n", e.settings.Get(key))
		return nil

	default:
		key := args[0]
		if !slices.Contains(settings.Keys(), key) {
			return fmt.Errorf("unknown setting %q", key)
		}
		if err := e.acquireLock(); err != nil {
			return err
		}
		e.settings.Set(key, args[1])
		if err := e.settings.Save(); err != nil {
			return err
		}
		fmt.Printf("%s = %v\n", key, e.settings.Get(key))
		return nil
	}
}
