package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps step types to their reconciler plugins. It is safe for
// concurrent use by the executor's workers.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin implementation for the provided step type.
func (r *Registry) Register(stepType string, p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin for %q is nil", stepType)
	}
	if err := p.PluginMetadata().Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[stepType]; exists {
		return fmt.Errorf("plugin %q already registered", stepType)
	}

	r.plugins[stepType] = p
	return nil
}

// Get retrieves a plugin by step type.
func (r *Registry) Get(stepType string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[stepType]
	if !ok {
		return nil, ErrPluginNotFound{Name: stepType}
	}

	return p, nil
}

// Types returns the registered step types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.plugins))
	for t := range r.plugins {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
