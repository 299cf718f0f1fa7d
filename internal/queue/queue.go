// Package queue holds the write buffers between the simulation goroutine and
// the storage writers.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO with an optional bound. A bounded
// queue drops the oldest items when full.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
}

// New creates a new empty queue. A limit of zero or less means unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	q.trim()
}

// Requeue puts items back in front of the queue, keeping their order ahead
// of anything pushed since they were drained.
func (q *Queue[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
	q.trim()
}

func (q *Queue[T]) trim() {
	if q.limit <= 0 || len(q.items) <= q.limit {
		return
	}
	over := len(q.items) - q.limit
	q.dropped += uint64(over)
	clear(q.items[:over])
	q.items = q.items[over:]
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped is the number of items discarded by the bound so far.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain returns all items and clears the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = nil
	return result
}
