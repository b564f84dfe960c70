package specialist

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/model"
)

// ErrNoExecutor is returned when no factory can serve a specialist.
var ErrNoExecutor = errors.New("no executor registered")

// Factory builds a fresh executor for one task of the given specialist.
type Factory func(core.SpecialistDescriptor) (core.Executor, error)

// Directory is a core.Resolver mapping specialist names to factories.
type Directory struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  Factory
}

var _ core.Resolver = (*Directory)(nil)

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{factories: make(map[string]Factory)}
}

// Register binds name to f, replacing any previous binding.
func (d *Directory) Register(name string, f Factory) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.factories[name] = f
	return d
}

// SetFallback sets the factory used for names without a binding.
func (d *Directory) SetFallback(f Factory) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = f
	return d
}

// Resolve implements core.Resolver.
func (d *Directory) Resolve(desc core.SpecialistDescriptor) (core.Executor, error) {
	d.mu.RLock()
	f, ok := d.factories[desc.Name]
	if !ok {
		f = d.fallback
	}
	d.mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("%w for specialist %q", ErrNoExecutor, desc.Name)
	}
	return f(desc)
}

// ModelFactory returns a Factory creating a ModelExecutor on llm per task.
func ModelFactory(llm model.Model, optFns ...func(o *ModelExecutorOptions)) Factory {
	return func(desc core.SpecialistDescriptor) (core.Executor, error) {
		if llm == nil {
			return nil, fmt.Errorf("%w: nil model for specialist %q", ErrNoExecutor, desc.Name)
		}
		return NewModelExecutor(desc, llm, optFns...), nil
	}
}
