// Package analysis runs post-simulation trajectory analysis: each tool
// is a shell command producing one output file, gated on the MD run's
// artifacts being present in the working directory.
package analysis

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gmxflow/gmxflow/internal/runner"
)

// requiredInputs must exist in the working directory before any
// analysis tool can produce meaningful output.
var requiredInputs = []string{"md.tpr", "md.xtc", "index.ndx"}

// Tool is one post-simulation analysis command.
type Tool struct {
	Name    string
	Command string

	// Output is the file the command writes on success.
	Output string

	// Interactive tools prompt for a GROMACS group selection on stdin
	// and must run attached to the terminal.
	Interactive bool
}

// tools lists the available analyses in menu order.
var tools = []Tool{
	{
		Name:        "Trajectory Cleaning",
		Command:     "gmx trjconv -s md.tpr -f md.xtc -o md_fit.xtc -center -pbc mol -ur compact -fit rot+trans",
		Output:      "md_fit.xtc",
		Interactive: true,
	},
	{
		Name:        "Backbone RMSD",
		Command:     "gmx rms -s md.tpr -f md_fit.xtc -n index.ndx -o rmsd_backbone.xvg",
		Output:      "rmsd_backbone.xvg",
		Interactive: true,
	},
	{
		Name:        "Ligand RMSD",
		Command:     "gmx rms -s md.tpr -f md_fit.xtc -n index.ndx -o rmsd_ligand.xvg",
		Output:      "rmsd_ligand.xvg",
		Interactive: true,
	},
	{
		Name:        "Protein-Ligand Distance",
		Command:     "gmx distance -s md.tpr -f md_fit.xtc -select 'com of group Protein plus com of group UNK' -oall lig_dist.xvg",
		Output:      "lig_dist.xvg",
		Interactive: true,
	},
}

// Tools returns the analysis catalog in menu order.
func Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

// Runner executes analysis tools in a working directory.
type Runner struct {
	workdir string
	exec    *runner.Runner
}

// NewRunner wraps the given command runner for analysis use.
func NewRunner(workdir string, exec *runner.Runner) *Runner {
	return &Runner{workdir: workdir, exec: exec}
}

// Ready reports whether the MD artifacts the analyses read are present,
// and which are missing otherwise.
func (r *Runner) Ready() (bool, []string) {
	var missing []string
	for _, name := range requiredInputs {
		if _, err := os.Stat(filepath.Join(r.workdir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return len(missing) == 0, missing
}

// Result describes one analysis run.
type Result struct {
	Tool Tool

	// OutputFile is set only when the command succeeded.
	OutputFile string

	Run *runner.Result
}

// Run executes the tool at the given zero-based index. A sink receives
// the command's combined output lines in captured mode; pass
// runner.ModeInteractive for tools that read a group selection.
func (r *Runner) Run(ctx context.Context, index int, sink runner.Sink, mode runner.Mode) *Result {
	if index < 0 || index >= len(tools) {
		return &Result{
			Run: &runner.Result{
				Status:   runner.StatusError,
				ExitCode: runner.ExitSpawnFailure,
				Message:  "no such analysis",
			},
		}
	}
	tool := tools[index]

	if sink != nil {
		sink(">>> Running: " + tool.Name)
		sink(">>> Command: " + tool.Command)
		sink("------------------------------------------------------------")
	}

	res := r.exec.Run(ctx, tool.Command, sink, mode)
	out := &Result{Tool: tool, Run: res}
	if res.Status == runner.StatusComplete {
		out.OutputFile = tool.Output
	}
	return out
}
