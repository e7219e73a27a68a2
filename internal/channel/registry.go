package channel

import (
	"errors"
	"fmt"
	"sync"
)

// Registry holds the enabled platform adapters. It is created once by the
// composition root and passed to the dispatcher, the inbound manager and the
// status handler.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Platform]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[Platform]Adapter{},
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter is nil")
	}
	p := normalizePlatform(adapter.Platform().String())
	if p == "" {
		return errors.New("platform is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[p]; exists {
		return fmt.Errorf("platform already registered: %s", p)
	}
	r.adapters[p] = adapter
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get returns the adapter for the given platform.
func (r *Registry) Get(platform Platform) (Adapter, bool) {
	p := normalizePlatform(platform.String())
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[p]
	return adapter, ok
}

// Sender returns the adapter for platform if it can send.
func (r *Registry) Sender(platform Platform) (Sender, bool) {
	adapter, ok := r.Get(platform)
	if !ok {
		return nil, false
	}
	sender, ok := adapter.(Sender)
	return sender, ok
}

// Typer returns the adapter for platform if it supports typing indicators.
func (r *Registry) Typer(platform Platform) (Typer, bool) {
	adapter, ok := r.Get(platform)
	if !ok {
		return nil, false
	}
	typer, ok := adapter.(Typer)
	return typer, ok
}

// List returns all registered adapters in platform order.
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Adapter, 0, len(r.adapters))
	for _, p := range Platforms {
		if a, ok := r.adapters[p]; ok {
			items = append(items, a)
		}
	}
	return items
}
