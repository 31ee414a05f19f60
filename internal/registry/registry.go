// Package registry provides the concurrent handle table for tracked processes.
package registry

import (
	"errors"
	"sync"
)

// ErrExists is returned by Add when the key is already registered.
var ErrExists = errors.New("handle already registered")

// Registry maps handles to entries. It is the only state shared between
// the goroutines that serve a process, so every access goes through mu.
// Entries are never revived: once removed, a handle stays unknown.
type Registry[K comparable, V any] struct {
	// +checklocks:mu
	entries map[K]V
	// +checklocks:mu
	order []K
	mu    sync.RWMutex
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Add registers v under key. It fails with ErrExists if key is taken.
func (r *Registry[K, V]) Add(key K, v V) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return ErrExists
	}
	r.entries[key] = v
	r.order = append(r.order, key)
	return nil
}

// Get returns the entry registered under key.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Remove deletes key and reports whether this call removed it.
// Exactly one of several concurrent callers observes true.
func (r *Registry[K, V]) Remove(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; !ok {
		return false
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the entries in registration order.
func (r *Registry[K, V]) List() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]V, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entries[k])
	}
	return out
}

// Count returns the number of registered entries.
func (r *Registry[K, V]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
