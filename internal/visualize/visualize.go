// Package visualize launches external viewers (VMD for trajectories,
// xmgrace for .xvg plots) detached from the application, and reports
// which viewers and input files are actually present.
package visualize

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Default files VMD opens when none are specified.
const (
	DefaultStructure  = "md.gro"
	DefaultTrajectory = "md_fit.xtc"
)

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// Launcher starts viewers against files in a working directory.
type Launcher struct {
	workdir string
}

// NewLauncher returns a Launcher rooted at workdir.
func NewLauncher(workdir string) *Launcher {
	return &Launcher{workdir: workdir}
}

// VMDAvailable reports whether the vmd binary is on PATH.
func (l *Launcher) VMDAvailable() (bool, string) {
	path, err := lookPath("vmd")
	if err != nil {
		return false, "vmd not found in PATH"
	}
	return true, path
}

// GraceAvailable reports whether xmgrace (or its grace alias) is on
// PATH, returning the name to invoke.
func (l *Launcher) GraceAvailable() (bool, string) {
	if _, err := lookPath("xmgrace"); err == nil {
		return true, "xmgrace"
	}
	if _, err := lookPath("grace"); err == nil {
		return true, "grace"
	}
	return false, ""
}

// LaunchVMD starts VMD with a structure and trajectory file and does
// not wait for it to exit. Empty names fall back to the defaults.
func (l *Launcher) LaunchVMD(structure, trajectory string) error {
	if structure == "" {
		structure = DefaultStructure
	}
	if trajectory == "" {
		trajectory = DefaultTrajectory
	}

	if ok, msg := l.VMDAvailable(); !ok {
		return fmt.Errorf("%s", msg)
	}
	for _, name := range []string{structure, trajectory} {
		if _, err := os.Stat(filepath.Join(l.workdir, name)); err != nil {
			return fmt.Errorf("file not found: %s", name)
		}
	}

	return l.spawn("vmd", structure, trajectory)
}

// LaunchGrace starts xmgrace on one .xvg file and does not wait for it
// to exit.
func (l *Launcher) LaunchGrace(xvgFile string) error {
	ok, tool := l.GraceAvailable()
	if !ok {
		return fmt.Errorf("xmgrace/grace not found in PATH")
	}
	if _, err := os.Stat(filepath.Join(l.workdir, xvgFile)); err != nil {
		return fmt.Errorf("file not found: %s", xvgFile)
	}
	return l.spawn(tool, xvgFile)
}

// XVGFiles lists the .xvg files in the working directory, sorted.
func (l *Launcher) XVGFiles() []string {
	entries, err := os.ReadDir(l.workdir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xvg") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files
}

// spawn starts the viewer detached, discarding its output. The process
// outlives the caller; it is never waited on.
func (l *Launcher) spawn(tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	cmd.Dir = l.workdir
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", tool, err)
	}
	// Reap the child when it exits so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}
