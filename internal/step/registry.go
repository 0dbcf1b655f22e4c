package step

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a step ID outside the registry's range.
var ErrNotFound = errors.New("step not found")

// Registry is an ordered, read-only catalog of pipeline steps together
// with their prerequisite graph. It is pure data: lookups have no side
// effects and the only failure mode is an unknown ID.
type Registry struct {
	steps   []Step
	prereqs map[ID][]ID
}

// NewRegistry builds a Registry from an ordered step list and a
// prerequisite map. The map may name zero or more prerequisites per
// step; steps absent from the map have none. Prerequisite IDs that do
// not exist in the step list are rejected.
func NewRegistry(steps []Step, prereqs map[ID][]ID) (*Registry, error) {
	known := make(map[ID]bool, len(steps))
	for _, s := range steps {
		if s.ID <= 0 {
			return nil, fmt.Errorf("step %q: invalid id %d", s.Name, s.ID)
		}
		if known[s.ID] {
			return nil, fmt.Errorf("duplicate step id %d", s.ID)
		}
		known[s.ID] = true
	}
	for id, deps := range prereqs {
		if !known[id] {
			return nil, fmt.Errorf("prerequisites declared for unknown step id %d", id)
		}
		for _, d := range deps {
			if !known[d] {
				return nil, fmt.Errorf("step %d: unknown prerequisite id %d", id, d)
			}
			if d == id {
				return nil, fmt.Errorf("step %d: depends on itself", id)
			}
		}
	}
	cp := make([]Step, len(steps))
	copy(cp, steps)
	pm := make(map[ID][]ID, len(prereqs))
	for id, deps := range prereqs {
		pm[id] = append([]ID(nil), deps...)
	}
	return &Registry{steps: cp, prereqs: pm}, nil
}

// Lookup returns the step with the given ID.
func (r *Registry) Lookup(id ID) (Step, error) {
	for _, s := range r.steps {
		if s.ID == id {
			return s, nil
		}
	}
	return Step{}, fmt.Errorf("unknown %s: %w", id, ErrNotFound)
}

// Prerequisites returns the ordered prerequisite IDs for a step. An
// unknown ID is the caller's problem and yields an empty set.
func (r *Registry) Prerequisites(id ID) []ID {
	deps := r.prereqs[id]
	if len(deps) == 0 {
		return nil
	}
	return append([]ID(nil), deps...)
}

// All returns the steps in declared pipeline order.
func (r *Registry) All() []Step {
	return append([]Step(nil), r.steps...)
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	return len(r.steps)
}
