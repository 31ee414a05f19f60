// Package ringbuffer provides a fixed-capacity circular buffer.
package ringbuffer

import "sync"

// DefaultSize is the number of items retained when no size is given.
const DefaultSize = 1000

// RingBuffer is a thread-safe circular buffer. It stores a fixed number of
// items and overwrites the oldest when full.
type RingBuffer[T any] struct {
	// +checklocks:mu
	items []T
	size  int // immutable after creation
	// +checklocks:mu
	head int // next write position
	// +checklocks:mu
	count int
	// +checklocks:mu
	total int64 // items ever pushed
	mu    sync.RWMutex
}

// New creates a ring buffer with the specified capacity.
// If size <= 0, DefaultSize is used.
func New[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &RingBuffer[T]{
		items: make([]T, size),
		size:  size,
	}
}

// Push appends v, evicting the oldest item when full.
func (rb *RingBuffer[T]) Push(v T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.items[rb.head] = v
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
	rb.total++
}

// Last returns the most recent n items, oldest first.
// If n <= 0 or n > Len, every stored item is returned.
func (rb *RingBuffer[T]) Last(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || n > rb.count {
		n = rb.count
	}
	if n == 0 {
		return nil
	}

	// head is the next write position, so the newest item sits just before it.
	start := (rb.head - n + rb.size) % rb.size
	out := make([]T, n)
	for i := range n {
		out[i] = rb.items[(start+i)%rb.size]
	}
	return out
}

// Len returns the number of items currently stored.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Cap returns the maximum number of items the buffer can hold.
func (rb *RingBuffer[T]) Cap() int {
	return rb.size
}

// Dropped returns how many items have been evicted.
func (rb *RingBuffer[T]) Dropped() int64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total - int64(rb.count)
}

// Clear removes all items.
func (rb *RingBuffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var zero T
	for i := range rb.items {
		rb.items[i] = zero
	}
	rb.head = 0
	rb.count = 0
}
