// Package registry holds the static table of specialists available for
// routing. It is populated once at startup and read concurrently afterwards.
package registry

import (
	"fmt"
	"iter"
	"sync"

	"github.com/gautammanak1/taskmesh/core"
)

// Registry stores specialist descriptors in registration order.
type Registry struct {
	mu          sync.RWMutex
	specialists []core.SpecialistDescriptor
	index       map[string]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a descriptor, deriving its keywords. It fails with
// *core.DuplicateNameError if the name is already present and with
// core.ErrPresetKeywords if d.Keywords is not empty.
func (r *Registry) Register(d core.SpecialistDescriptor) error {
	if len(d.Keywords) > 0 {
		return fmt.Errorf("specialist %q: %w", d.Name, core.ErrPresetKeywords)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[d.Name]; exists {
		return &core.DuplicateNameError{Name: d.Name}
	}

	r.index[d.Name] = len(r.specialists)
	r.specialists = append(r.specialists, d.WithDerivedKeywords())

	return nil
}

// MustRegister registers every descriptor and panics on the first error.
// Intended for static setups in examples and tests.
func (r *Registry) MustRegister(ds ...core.SpecialistDescriptor) *Registry {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}

	return r
}

// All returns a restartable sequence over the descriptors in registration order.
func (r *Registry) All() iter.Seq[core.SpecialistDescriptor] {
	return func(yield func(core.SpecialistDescriptor) bool) {
		r.mu.RLock()
		snapshot := r.specialists
		r.mu.RUnlock()

		for _, d := range snapshot {
			if !yield(d) {
				return
			}
		}
	}
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (core.SpecialistDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return core.SpecialistDescriptor{}, false
	}

	return r.specialists[i], true
}

// Len returns the number of registered specialists.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.specialists)
}

// Default returns the first descriptor flagged Default, else the first
// registered one. It fails with *core.NoSpecialistAvailableError when empty.
func (r *Registry) Default() (core.SpecialistDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.specialists) == 0 {
		return core.SpecialistDescriptor{}, &core.NoSpecialistAvailableError{}
	}

	for _, d := range r.specialists {
		if d.Default {
			return d, nil
		}
	}

	return r.specialists[0], nil
}
