// Package event provides a generic fan-out hub for process events.
package event

import "sync"

// Emitter delivers each emitted value to every current subscriber.
// Subscribers are called synchronously, in subscription order, on the
// emitting goroutine.
type Emitter[E any] struct {
	// +checklocks:mu
	subs []subscriber[E]
	// +checklocks:mu
	nextID uint64
	mu     sync.RWMutex
}

type subscriber[E any] struct {
	id uint64
	fn func(E)
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (e *Emitter[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscriber[E]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit sends v to all subscribers registered when Emit was called.
// Subscribers added or removed during emission take effect on the next call.
// Must not be called with lock held.
func (e *Emitter[E]) Emit(v E) {
	e.mu.RLock()
	subs := make([]subscriber[E], len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (e *Emitter[E]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}
