// Package testutil provides shared fixtures for pipeline tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupWorkdir creates a temporary working directory populated with the
// given files. Keys are paths relative to the directory; parent
// directories are created as needed. The directory is removed when the
// test completes.
func SetupWorkdir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for path, content := range files {
		WriteFile(t, dir, path, content)
	}
	return dir
}

// WriteFile writes content to a path relative to dir, creating parent
// directories as needed.
func WriteFile(t *testing.T, dir, path, content string) {
	t.Helper()

	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create parent dir for %s: %v", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TouchAll creates each named file in dir with placeholder content.
// Useful for simulating step outputs and mandatory inputs.
func TouchAll(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		WriteFile(t, dir, name, "test data\n")
	}
}

// FileExists reports whether a path relative to dir exists as a
// regular file.
func FileExists(t *testing.T, dir, path string) bool {
	t.Helper()

	info, err := os.Stat(filepath.Join(dir, path))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
