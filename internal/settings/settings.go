// Package settings manages the per-working-directory simulation
// parameter document.
//
// Parameters live in .gmxflow/settings.json and are loaded through a
// dedicated viper instance with registered defaults, so a document
// written by an older gmxflow gains newly introduced keys without
// invalidating: absent keys simply fall back to their defaults. The
// document is owned by the session and only written on an explicit
// [Settings.Save].
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/gmxflow/gmxflow/internal/state"
)

// FileName is the settings document name inside the metadata directory.
const FileName = "settings.json"

// Parameter keys.
const (
	KeyMDLengthNS  = "md_length_ns"
	KeySimMode     = "simulation_mode"
	KeyNVTSteps    = "nvt_steps"
	KeyNPTSteps    = "npt_steps"
	KeyTemperature = "temperature_k"
	KeyPressure    = "pressure_bar"
	KeyTimestep    = "dt_ps"
)

// Simulation modes.
const (
	ModeProteinOnly   = "protein_only"
	ModeProteinLigand = "protein_ligand"
)

func defaults() map[string]any {
	return map[string]any{
		KeyMDLengthNS:  1.0,   // Production MD length in nanoseconds
		KeyNVTSteps:    50000, // 100 ps at 2 fs
		KeyNPTSteps:    50000, // 100 ps at 2 fs
		KeyTemperature: 300,
		KeyPressure:    1.0,
		KeyTimestep:    0.002, // 2 fs
		KeySimMode:     ModeProteinOnly,
	}
}

// Keys returns the known parameter keys in display order.
func Keys() []string {
	return []string{
		KeySimMode,
		KeyMDLengthNS,
		KeyNVTSteps,
		KeyNPTSteps,
		KeyTemperature,
		KeyPressure,
		KeyTimestep,
	}
}

// Settings is the mutable simulation-parameter mapping for one working
// directory. All reads merge the persisted document over defaults.
type Settings struct {
	v    *viper.Viper
	path string
}

// Open loads the settings document for a working directory. A missing
// document yields pure defaults; a partial document is merged over
// them.
func Open(workdir string) (*Settings, error) {
	path := filepath.Join(workdir, state.Dir, FileName)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	for key, def := range defaults() {
		v.SetDefault(key, def)
	}

	// A missing document means defaults; anything else (unreadable,
	// malformed JSON) is a real error the operator should see.
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return &Settings{v: v, path: path}, nil
}

// Save writes the current mapping back to the document, creating the
// metadata directory as needed.
func (s *Settings) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Set updates one parameter in memory; Save persists it.
func (s *Settings) Set(key string, value any) {
	s.v.Set(key, value)
}

// Get returns the raw value for a key (merged over defaults).
func (s *Settings) Get(key string) any {
	return s.v.Get(key)
}

// All returns the full merged mapping.
func (s *Settings) All() map[string]any {
	return s.v.AllSettings()
}

// MDLengthNS returns the production MD length in nanoseconds.
func (s *Settings) MDLengthNS() float64 { return s.v.GetFloat64(KeyMDLengthNS) }

// NVTSteps returns the NVT equilibration step count.
func (s *Settings) NVTSteps() int { return s.v.GetInt(KeyNVTSteps) }

// NPTSteps returns the NPT equilibration step count.
func (s *Settings) NPTSteps() int { return s.v.GetInt(KeyNPTSteps) }

// Temperature returns the reference temperature in Kelvin.
func (s *Settings) Temperature() float64 { return s.v.GetFloat64(KeyTemperature) }

// Pressure returns the reference pressure in bar.
func (s *Settings) Pressure() float64 { return s.v.GetFloat64(KeyPressure) }

// Timestep returns the integration timestep in picoseconds.
func (s *Settings) Timestep() float64 { return s.v.GetFloat64(KeyTimestep) }

// SimulationMode returns "protein_only" or "protein_ligand".
func (s *Settings) SimulationMode() string { return s.v.GetString(KeySimMode) }

// MDSteps derives the production MD step count from the configured
// length and timestep (ns → ps → steps).
func (s *Settings) MDSteps() int {
	dt := s.Timestep()
	if dt <= 0 {
		dt = 0.002
	}
	return int(s.MDLengthNS() * 1000 / dt)
}
