// Package cmd defines the gmxflow command line interface. Running the
// bare command opens the interactive dashboard; subcommands expose the
// same pipeline operations for scripting.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gmxflow/gmxflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "gmxflow",
	Short: "GROMACS MD pipeline runner",
	Long: `gmxflow drives a protein-ligand molecular dynamics pipeline through
GROMACS: system preparation, solvation, minimization, equilibration and
production MD, with durable per-step completion tracking so interrupted
pipelines resume where they left off.`,
	RunE: runDashboard,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a caller-provided context,
// so signal cancellation propagates into running steps.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/gmxflow/config.yaml)")
	rootCmd.PersistentFlags().StringP("workdir", "w", "", "simulation working directory (default is the current directory)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("paths.workdir", rootCmd.PersistentFlags().Lookup("workdir"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/gmxflow")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GMXFLOW")
	// Replace dots with underscores for nested keys in env vars
	// e.g., GMXFLOW_RUN_SHELL for run.shell
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig resolves the effective configuration or fails with the
// validation errors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
