// Package ringbuf provides a fixed-capacity circular buffer that keeps the most
// recent values and evicts the oldest first.
package ringbuf

import "fmt"

// Ring holds at most Cap() values. It is not safe for concurrent use.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// New returns an empty ring with the given capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("ringbuf: capacity must be positive, got %d", capacity))
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, overwriting the oldest value when full.
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len is the number of values held.
func (r *Ring[T]) Len() int { return r.size }

// Cap is the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Latest returns the most recently pushed value.
func (r *Ring[T]) Latest() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Values copies the held values, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
