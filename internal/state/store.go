// Package state tracks durable pipeline progress in a working directory.
//
// The [Store] persists one completion marker per step under
// .gmxflow/steps/; presence of the marker is the only load-bearing fact,
// the JSON body (a timestamp) is advisory. Markers survive process
// restarts and are visible to any process inspecting the same working
// directory. No cross-process locking is provided: the design assumes a
// single operator running one gmxflow at a time per directory.
//
// The [Detector] answers the independent question of whether a step's
// declared output artifacts already exist on disk. A step can have
// leftover outputs without a marker (a crashed run) or a marker without
// outputs (manual deletion); the two signals are deliberately never
// reconciled here.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gmxflow/gmxflow/internal/step"
)

const (
	// Dir is the gmxflow metadata directory inside a working directory.
	Dir = ".gmxflow"

	stepsDir = "steps"
)

// Record is the JSON body of a completion marker. Content is advisory;
// only the file's presence gates execution.
type Record struct {
	StepID      int       `json:"step_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store is a filesystem-backed completion flag store for one working
// directory. It is safe for concurrent use within a process.
type Store struct {
	workdir string
	mu      sync.RWMutex
}

// NewStore creates a Store for the given working directory. The
// metadata directory is created lazily on the first write, so opening a
// store never mutates a pristine directory.
func NewStore(workdir string) *Store {
	return &Store{workdir: workdir}
}

// FlagsDir returns the directory holding the completion markers.
func (s *Store) FlagsDir() string {
	return filepath.Join(s.workdir, Dir, stepsDir)
}

func (s *Store) flagPath(id step.ID) string {
	return filepath.Join(s.FlagsDir(), flagName(id))
}

func flagName(id step.ID) string {
	return fmt.Sprintf("step-%d.done", int(id))
}

// parseFlagName extracts the step ID from a marker filename. Returns
// false for files that are not completion markers.
func parseFlagName(name string) (step.ID, bool) {
	var id int
	if n, err := fmt.Sscanf(name, "step-%d.done", &id); err != nil || n != 1 || id <= 0 {
		return 0, false
	}
	return step.ID(id), true
}

// IsComplete reports whether a durable completion marker exists for the
// step. It re-reads the filesystem on every call; completion may change
// between calls when another session runs in the same directory.
func (s *Store) IsComplete(id step.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.flagPath(id))
	return err == nil
}

// CompletedAt returns the recorded completion time for a step, or false
// when no marker exists or its body is unreadable.
func (s *Store) CompletedAt(id step.ID) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.flagPath(id))
	if err != nil {
		return time.Time{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return time.Time{}, false
	}
	return rec.CompletedAt, true
}

// MarkComplete writes a completion marker for the step with the current
// timestamp. It is idempotent: repeated calls overwrite the marker and
// the last write wins.
func (s *Store) MarkComplete(id step.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id <= 0 {
		return fmt.Errorf("invalid step id %d", id)
	}
	if err := os.MkdirAll(s.FlagsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create flags directory: %w", err)
	}

	rec := Record{StepID: int(id), CompletedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode marker: %w", err)
	}
	return atomicWriteFile(s.flagPath(id), data, 0644)
}

// Clear removes the completion marker for a step. Clearing an absent
// marker is not an error.
func (s *Store) Clear(id step.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.flagPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove marker: %w", err)
	}
	return nil
}

// ClearAll removes every completion marker in the working directory.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.FlagsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read flags directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := parseFlagName(e.Name()); !ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.FlagsDir(), e.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Completed returns the IDs of all steps with completion markers.
// Order follows the directory listing; callers needing pipeline order
// should sort.
func (s *Store) Completed() []step.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.FlagsDir())
	if err != nil {
		return nil
	}
	var ids []step.ID
	for _, e := range entries {
		if id, ok := parseFlagName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// atomicWriteFile writes data to path via a temp file and rename, so a
// crash mid-write never leaves a truncated marker behind.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
