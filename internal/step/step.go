package step

import "fmt"

// ID identifies a pipeline step. Valid IDs form a dense sequence starting
// at 1; anything outside the registry's range is rejected at lookup time.
type ID int

// String returns the display form of the ID.
func (id ID) String() string {
	return fmt.Sprintf("step %d", int(id))
}

// ManualIntervention describes edits the operator must perform by hand
// before the pipeline may safely continue past a step.
type ManualIntervention struct {
	// File is the file the operator must edit (e.g., "topol.top").
	File string
	// Actions are free-text instructions, shown verbatim.
	Actions []string
}

// Step is one external command invocation in the pipeline.
//
// Steps are immutable once defined. Command may be a shell-level
// conjunction of multiple sub-commands; it is always executed through a
// command interpreter with the working directory as cwd.
type Step struct {
	// ID is the step's position in the pipeline, starting at 1.
	ID ID
	// Name is the human-readable step name shown in menus and logs.
	Name string
	// Command is the shell command line to execute.
	Command string
	// Produces lists the output artifacts the command is expected to
	// create, in declaration order. Used for resume detection only; the
	// engine never validates their content.
	Produces []string
	// Interactive marks commands that prompt the operator on the
	// terminal (e.g., pdb2gmx force field selection). Such steps run
	// with inherited stdio instead of captured pipes.
	Interactive bool
	// Requires lists the input files the command reads. Missing inputs
	// are reported as an advisory before execution.
	Requires []string
	// Manual, if set, describes hand edits needed after the step.
	Manual *ManualIntervention
}
