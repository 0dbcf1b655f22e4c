package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete gmxflow configuration
type Config struct {
	Run     RunConfig     `mapstructure:"run"`
	TUI     TUIConfig     `mapstructure:"tui"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// RunConfig controls how pipeline steps are executed
type RunConfig struct {
	// Shell is the command interpreter used to run step commands (default: "sh")
	Shell string `mapstructure:"shell"`
	// ConfirmOverwrite prompts before re-running a step whose output files
	// already exist (default: true)
	ConfirmOverwrite bool `mapstructure:"confirm_overwrite"`
	// HaltOnError stops a full pipeline run at the first failing step (default: true)
	HaltOnError bool `mapstructure:"halt_on_error"`
	// GmxCheckTimeoutSec bounds the GROMACS availability probe at startup
	GmxCheckTimeoutSec int `mapstructure:"gmx_check_timeout_sec"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// MaxOutputLines limits how many output lines the run view keeps per step
	MaxOutputLines int `mapstructure:"max_output_lines"`
	// Theme is the color theme for the TUI (default: "default")
	// Options: "default", "monokai", "dracula", "nord"
	Theme string `mapstructure:"theme"`
	// ShowCommandPreview shows the full shell command in the step list (default: true)
	ShowCommandPreview bool `mapstructure:"show_command_preview"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// PathsConfig controls where gmxflow stores and reads data
type PathsConfig struct {
	// Workdir is the simulation working directory. Empty means the
	// current directory. Supports ~ for home directory expansion.
	Workdir string `mapstructure:"workdir"`
}

// ResolveWorkdir returns the resolved working directory path.
// If Workdir is empty, it returns baseDir. If Workdir starts with ~,
// it expands to the user's home directory. Relative paths are resolved
// relative to baseDir.
func (p *PathsConfig) ResolveWorkdir(baseDir string) string {
	if p.Workdir == "" {
		return baseDir
	}

	path := p.Workdir
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// GmxCheckTimeout returns the GROMACS probe timeout as a time.Duration
func (r *RunConfig) GmxCheckTimeout() time.Duration {
	return time.Duration(r.GmxCheckTimeoutSec) * time.Second
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Shell:              "sh",
			ConfirmOverwrite:   true,
			HaltOnError:        true,
			GmxCheckTimeoutSec: 10,
		},
		TUI: TUIConfig{
			MaxOutputLines:     1000,
			Theme:              "default",
			ShowCommandPreview: true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Paths: PathsConfig{
			Workdir: "", // Empty means the current directory
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Run defaults
	viper.SetDefault("run.shell", defaults.Run.Shell)
	viper.SetDefault("run.confirm_overwrite", defaults.Run.ConfirmOverwrite)
	viper.SetDefault("run.halt_on_error", defaults.Run.HaltOnError)
	viper.SetDefault("run.gmx_check_timeout_sec", defaults.Run.GmxCheckTimeoutSec)

	// TUI defaults
	viper.SetDefault("tui.max_output_lines", defaults.TUI.MaxOutputLines)
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
	viper.SetDefault("tui.show_command_preview", defaults.TUI.ShowCommandPreview)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Paths defaults
	viper.SetDefault("paths.workdir", defaults.Paths.Workdir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gmxflow")
	}
	// Fall back to ~/.config/gmxflow
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gmxflow"
	}
	return filepath.Join(home, ".config", "gmxflow")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
