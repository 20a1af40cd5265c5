// internal/lookup/queue.go

// Package lookup runs the external lookups the parser never performs
// itself: KOS checks and avatar fetches. Each has its own FIFO queue
// drained by a single goroutine, so a slow remote service only stalls its
// own queue.
package lookup

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO with a single consumer. Put never blocks;
// Get blocks while the queue is empty.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

// NewQueue returns an empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Put appends v
func (q *Queue[T]) Put(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Get removes the oldest item, waiting for one if needed. It returns the
// context error if ctx ends first.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of waiting items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
