package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default run config
	if cfg.Run.Shell != "sh" {
		t.Errorf("Run.Shell = %q, want %q", cfg.Run.Shell, "sh")
	}
	if !cfg.Run.ConfirmOverwrite {
		t.Error("Run.ConfirmOverwrite should be true by default")
	}
	if !cfg.Run.HaltOnError {
		t.Error("Run.HaltOnError should be true by default")
	}
	if cfg.Run.GmxCheckTimeoutSec != 10 {
		t.Errorf("Run.GmxCheckTimeoutSec = %d, want 10", cfg.Run.GmxCheckTimeoutSec)
	}

	// Verify default TUI config
	if cfg.TUI.MaxOutputLines != 1000 {
		t.Errorf("TUI.MaxOutputLines = %d, want 1000", cfg.TUI.MaxOutputLines)
	}
	if cfg.TUI.Theme != "default" {
		t.Errorf("TUI.Theme = %q, want %q", cfg.TUI.Theme, "default")
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	if cfg.Paths.Workdir != "" {
		t.Errorf("Paths.Workdir = %q, want empty", cfg.Paths.Workdir)
	}
}

func TestRunConfig_GmxCheckTimeout(t *testing.T) {
	tests := []struct {
		sec      int
		expected time.Duration
	}{
		{10, 10 * time.Second},
		{1, 1 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		r := RunConfig{GmxCheckTimeoutSec: tt.sec}
		if got := r.GmxCheckTimeout(); got != tt.expected {
			t.Errorf("GmxCheckTimeout(%d) = %v, want %v", tt.sec, got, tt.expected)
		}
	}
}

func TestSetDefaultsAndLoad(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := Default()
	if cfg.Run.Shell != want.Run.Shell {
		t.Errorf("Run.Shell = %q, want %q", cfg.Run.Shell, want.Run.Shell)
	}
	if cfg.TUI.MaxOutputLines != want.TUI.MaxOutputLines {
		t.Errorf("TUI.MaxOutputLines = %d, want %d", cfg.TUI.MaxOutputLines, want.TUI.MaxOutputLines)
	}
	if cfg.Logging.Level != want.Logging.Level {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, want.Logging.Level)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("run.shell", "bash")
	viper.Set("tui.theme", "nord")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Run.Shell != "bash" {
		t.Errorf("Run.Shell = %q, want bash", cfg.Run.Shell)
	}
	if cfg.TUI.Theme != "nord" {
		t.Errorf("TUI.Theme = %q, want nord", cfg.TUI.Theme)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("logging.level", "verbose")

	if _, err := Load(); err == nil {
		t.Error("Load() accepted an invalid log level")
	}
}

func TestPathsConfig_ResolveWorkdir(t *testing.T) {
	base := "/sims/run1"
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir failed: %v", err)
	}

	tests := []struct {
		name    string
		workdir string
		want    string
	}{
		{"empty uses base", "", base},
		{"absolute kept", "/data/md", "/data/md"},
		{"relative resolved against base", "lysozyme", filepath.Join(base, "lysozyme")},
		{"tilde expanded", "~/md", filepath.Join(home, "md")},
		{"bare tilde", "~", home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PathsConfig{Workdir: tt.workdir}
			if got := p.ResolveWorkdir(base); got != tt.want {
				t.Errorf("ResolveWorkdir(%q) = %q, want %q", tt.workdir, got, tt.want)
			}
		})
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "gmxflow") {
		t.Errorf("ConfigDir() = %q", got)
	}
}
