package state

import (
	"os"
	"path/filepath"

	"github.com/gmxflow/gmxflow/internal/step"
)

// Detector inspects a working directory for artifacts a step would
// produce. It is a pre-flight advisory only: the pipeline uses it to
// warn before a fresh run silently clobbers prior results, never to
// block execution.
type Detector struct {
	workdir string
}

// NewDetector creates a Detector for the given working directory.
func NewDetector(workdir string) *Detector {
	return &Detector{workdir: workdir}
}

// OutputsExist reports which of the step's declared output artifacts
// already exist, in declaration order. It reads only the declared
// Produces list; the completion store is consulted separately.
func (d *Detector) OutputsExist(s step.Step) (bool, []string) {
	var existing []string
	for _, name := range s.Produces {
		if _, err := os.Stat(filepath.Join(d.workdir, name)); err == nil {
			existing = append(existing, name)
		}
	}
	return len(existing) > 0, existing
}

// MissingInputs reports which of the step's declared input files are
// absent, in declaration order. Advisory, like OutputsExist.
func (d *Detector) MissingInputs(s step.Step) []string {
	var missing []string
	for _, name := range s.Requires {
		if _, err := os.Stat(filepath.Join(d.workdir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
