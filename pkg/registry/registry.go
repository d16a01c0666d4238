// Package registry maps handler names to their implementations.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/flowengine/pkg/domain"
)

// Handler is the unit of work executed when a node is visited.
// It receives a copy of the current state and returns either a partial update
// (a key/value mapping, merged into the state) or any other value (recorded only).
type Handler interface {
	Invoke(ctx context.Context, state domain.State) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, state domain.State) (any, error)

// Invoke calls f(ctx, state).
func (f HandlerFunc) Invoke(ctx context.Context, state domain.State) (any, error) {
	return f(ctx, state)
}

// Registry manages the available handlers.
// Registration is expected at setup time; lookups are safe during runs.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler to the registry.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterFunc is a shorthand for Register(name, HandlerFunc(fn)).
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, state domain.State) (any, error)) {
	r.Register(name, HandlerFunc(fn))
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
