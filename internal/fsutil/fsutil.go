// Package fsutil holds small filesystem and tooling probes shared by
// the command surface and the TUI.
package fsutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// gmxProbeTimeout bounds the version probe so a wedged gmx binary
// cannot hang startup.
const gmxProbeTimeout = 10 * time.Second

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// CheckFiles partitions names into those present in dir and those
// absent, preserving input order.
func CheckFiles(dir string, names []string) (found, missing []string) {
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			found = append(found, name)
		} else {
			missing = append(missing, name)
		}
	}
	return found, missing
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GromacsAvailable probes for the gmx binary and, when present, its
// version. The binary being on PATH counts as available even when the
// version probe fails or times out.
func GromacsAvailable(ctx context.Context) (bool, string) {
	path, err := lookPath("gmx")
	if err != nil {
		return false, "GROMACS (gmx) not found in PATH. Install GROMACS and ensure 'gmx' is accessible."
	}

	ctx, cancel := context.WithTimeout(ctx, gmxProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "gmx", "--version").Output()
	if err != nil {
		return true, fmt.Sprintf("GROMACS found at %s", path)
	}
	line := strings.SplitN(string(out), "\n", 2)[0]
	if line == "" {
		line = "unknown version"
	}
	return true, "GROMACS found: " + line
}

// ToolAvailable reports whether a named external tool is on PATH,
// returning its resolved path or an error message.
func ToolAvailable(name string) (bool, string) {
	path, err := lookPath(name)
	if err != nil {
		return false, name + " not found in PATH"
	}
	return true, path
}

// HumanSize renders a file's size for display, or "N/A" when the file
// is absent.
func HumanSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "N/A"
	}
	size := float64(info.Size())
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

// TruncateOutput keeps the last maxLines lines of output, prefixing a
// marker when lines were dropped.
func TruncateOutput(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}
	dropped := len(lines) - maxLines
	return fmt.Sprintf("... [%d lines truncated] ...\n%s", dropped, strings.Join(lines[dropped:], "\n"))
}
