package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gmxflow/gmxflow/internal/step"
)

// Event reports a change to a step's completion marker, typically made
// by another gmxflow session running against the same directory.
type Event struct {
	StepID step.ID
	// Completed is true when the marker was created or rewritten, false
	// when it was removed.
	Completed bool
}

// Watcher delivers marker-change events for a Store's flags directory.
type Watcher struct {
	fsw       *fsnotify.Watcher
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Watch starts watching the store's flags directory for marker changes.
// The directory is created if it does not exist yet, since fsnotify
// cannot watch a missing path. Close the watcher to release it.
func (s *Store) Watch() (*Watcher, error) {
	if err := os.MkdirAll(s.FlagsDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create flags directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(s.FlagsDir()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.FlagsDir(), err)
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel of marker-change events. The channel is
// closed when the watcher is closed or its underlying watch fails.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher and closes the event channel. Safe to call
// more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			id, match := parseFlagName(filepath.Base(ev.Name))
			if !match {
				continue
			}
			var out Event
			switch {
			case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
				out = Event{StepID: id, Completed: true}
			case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
				out = Event{StepID: id, Completed: false}
			default:
				continue
			}
			select {
			case w.events <- out:
			case <-w.done:
				return
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal for an advisory refresh signal.
		}
	}
}
