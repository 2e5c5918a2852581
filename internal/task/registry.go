package task

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownTaskType is returned when no factory is registered for a task type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Factory rebuilds a runnable task from its persisted record.
type Factory interface {
	// CreateTask returns the task described by rec.
	CreateTask(rec Record) (Task, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(rec Record) (Task, error)

// CreateTask calls f(rec).
func (f FactoryFunc) CreateTask(rec Record) (Task, error) {
	return f(rec)
}

// Registry maps task types to the factories that build them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register sets the factory for taskType, replacing any previous one.
func (r *Registry) Register(taskType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = factory
}

// Build creates the task described by rec using the factory for rec.Type.
func (r *Registry) Build(rec Record) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, rec.Type)
	}

	t, err := factory.CreateTask(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s task %s: %w", rec.Type, rec.ID, err)
	}
	return t, nil
}
