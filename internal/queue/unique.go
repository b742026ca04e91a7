package queue

import (
	"sync"

	"github.com/zyedidia/generic/mapset"
)

// UniqueQueue is a thread-safe FIFO that holds each value at most once.
// Pushing a value that is already pending is a no-op, so callers can enqueue
// idempotently without tracking membership themselves.
type UniqueQueue[T comparable] struct {
	mu      sync.Mutex
	items   []T
	pending mapset.Set[T]
}

// NewUnique creates a new empty de-duplicating queue.
func NewUnique[T comparable]() *UniqueQueue[T] {
	return &UniqueQueue[T]{
		items:   make([]T, 0),
		pending: mapset.New[T](),
	}
}

// Push appends items not already pending and returns how many were added.
func (q *UniqueQueue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	added := 0
	for _, item := range items {
		if q.pending.Has(item) {
			continue
		}
		q.pending.Put(item)
		q.items = append(q.items, item)
		added++
	}
	return added
}

// Pop removes and returns the oldest item. ok is false when the queue is empty.
func (q *UniqueQueue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	q.pending.Remove(item)
	return item, true
}

// Len returns the number of pending items.
func (q *UniqueQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops all pending items.
func (q *UniqueQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]T, 0)
	q.pending = mapset.New[T]()
}
