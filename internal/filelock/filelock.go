// Package filelock guards a pipeline working directory against
// concurrent sessions. Two processes mutating the same completion
// flags or settings file at once would silently corrupt state, so
// any command that writes metadata takes the lock first.
//
// The lock is advisory and per-host: it records the owning PID in a
// file under the metadata directory, and a lock whose owner is no
// longer running is treated as stale and taken over.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the name of the lock file inside the metadata directory.
const LockFileName = "session.lock"

// ErrLocked is returned when another live process holds the lock.
var ErrLocked = errors.New("working directory is in use by another session")

// Lock represents a held session lock. Release it when the session ends.
type Lock struct {
	path string
}

// Acquire takes the session lock for the given metadata directory,
// creating the directory if needed. If the lock file exists but its
// owner is no longer running, the stale lock is removed and retried.
// Returns ErrLocked (wrapped with the owner's PID) if another live
// process holds it.
func Acquire(metaDir string) (*Lock, error) {
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}

	path := filepath.Join(metaDir, LockFileName)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		pid, perr := ownerPID(path)
		if perr != nil || !processAlive(pid) {
			// Stale or unreadable lock: remove and retry once.
			if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				return nil, fmt.Errorf("remove stale lock: %w", rerr)
			}
			continue
		}
		return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
	}
	return nil, ErrLocked
}

// Release removes the lock file. Safe to call on a nil lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Path returns the location of the lock file.
func (l *Lock) Path() string {
	return l.path
}

func ownerPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed lock file %s", path)
	}
	return pid, nil
}

// processAlive reports whether a process with the given PID exists.
// Signal 0 performs the existence check without delivering anything;
// EPERM still means the process is there.
func processAlive(pid int) bool {
	if pid == os.Getpid() {
		return true
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
