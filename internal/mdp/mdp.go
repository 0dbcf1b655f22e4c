// Package mdp renders GROMACS .mdp parameter files from the simulation
// settings, so equilibration lengths and thermostat targets follow the
// working directory's settings document instead of hand-edited copies.
package mdp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/gmxflow/gmxflow/internal/settings"
)

// params feeds one template execution.
type params struct {
	NSteps      int
	DT          float64
	Temperature float64
	Pressure    float64
}

// Names returns the available template names in stable order.
func Names() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate renders one named template with the given settings and
// writes it to outPath.
func Generate(name string, s *settings.Settings, outPath string) error {
	text, ok := templates[name]
	if !ok {
		return fmt.Errorf("unknown mdp template %q (have %s)", name, strings.Join(Names(), ", "))
	}

	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	p := params{
		DT:          s.Timestep(),
		Temperature: s.Temperature(),
		Pressure:    s.Pressure(),
	}
	switch name {
	case "nvt":
		p.NSteps = s.NVTSteps()
	case "npt":
		p.NSteps = s.NPTSteps()
	case "md":
		p.NSteps = s.MDSteps()
	default:
		p.NSteps = 50000
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, p); err != nil {
		return fmt.Errorf("failed to render %s template: %w", name, err)
	}
	if err := os.WriteFile(outPath, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return nil
}

// GenerateAll renders every template into the working directory as
// <name>.mdp, returning per-file errors keyed by filename.
func GenerateAll(s *settings.Settings, workdir string) map[string]error {
	results := make(map[string]error, len(templates))
	for _, name := range Names() {
		file := name + ".mdp"
		results[file] = Generate(name, s, filepath.Join(workdir, file))
	}
	return results
}
