// Package ringbuffer implements a bounded thread-safe FIFO queue with
// non-blocking push, blocking and non-blocking pop, and graceful
// producer-initiated shutdown.
//
// The producer signals that it has finished by calling Stop. Consumers keep
// draining queued values; only once the ring is empty do further pops fail
// with ErrStopped, so a producer finishing never loses already-queued data.
package ringbuffer

import (
	"errors"
	"sync"
)

var (
	// ErrFull is returned by TryPush when the ring is at capacity.
	ErrFull = errors.New("strix: ring buffer is full")

	// ErrEmpty is returned by TryPop when the ring is empty but still active.
	ErrEmpty = errors.New("strix: ring buffer is empty")

	// ErrStopped is returned once the ring has been stopped: by every push,
	// and by pops after the remaining values have been drained.
	ErrStopped = errors.New("strix: ring buffer has been stopped")
)

// Ring is a fixed-capacity concurrent FIFO. Any number of producers may call
// TryPush and any number of consumers may call Pop/TryPop; a single mutex
// guards all state. Pop is the only operation that blocks.
type Ring[T any] struct {
	mu   sync.Mutex
	cond sync.Cond // signalled on push, broadcast on stop

	slots   []T
	head    int // first slot with data
	tail    int // first free slot
	length  int // number of slots with data
	stopped bool
}

// New creates an empty ring with the given capacity. Capacity must be
// positive.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	r := &Ring[T]{slots: make([]T, capacity)}
	r.cond.L = &r.mu
	return r
}

// TryPush enqueues a value without blocking. It fails with ErrStopped after
// Stop (checked before capacity, so no data is ever queued behind a stop)
// and with ErrFull when the ring is at capacity.
func (r *Ring[T]) TryPush(v T) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	if r.length == len(r.slots) {
		r.mu.Unlock()
		return ErrFull
	}
	r.slots[r.tail] = v
	r.tail = r.next(r.tail)
	r.length++
	r.mu.Unlock()
	// Signalling after unlocking avoids the woken consumer immediately
	// blocking again on the mutex.
	r.cond.Signal()
	return nil
}

// TryPop dequeues the oldest value without blocking. It fails with ErrStopped
// when the ring is empty and stopped, and with ErrEmpty when it is empty but
// still active.
func (r *Ring[T]) TryPop() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.length == 0 {
		var zero T
		if r.stopped {
			return zero, ErrStopped
		}
		return zero, ErrEmpty
	}
	return r.popLocked(), nil
}

// Pop dequeues the oldest value, blocking until one is available or the ring
// is stopped and drained. It never returns ErrEmpty: absence of data while
// the ring is active means keep waiting.
func (r *Ring[T]) Pop() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.length == 0 && !r.stopped {
		r.cond.Wait()
	}
	if r.length == 0 {
		var zero T
		return zero, ErrStopped
	}
	return r.popLocked(), nil
}

// Stop marks the ring as shut down and wakes every blocked consumer. Queued
// values are not discarded; they remain retrievable until the ring drains.
// Stop is idempotent and never un-sets.
func (r *Ring[T]) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Len returns the current number of queued values.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.slots) }

// popLocked removes the head value. The slot is zeroed so the ring does not
// pin the value's memory (packets borrow into heap buffers).
func (r *Ring[T]) popLocked() T {
	v := r.slots[r.head]
	var zero T
	r.slots[r.head] = zero
	r.head = r.next(r.head)
	r.length--
	return v
}

// next increments a slot index, wrapping around.
func (r *Ring[T]) next(idx int) int {
	idx++
	if idx == len(r.slots) {
		idx = 0
	}
	return idx
}
