// Package queue holds the small thread-safe FIFOs shared between the tick and
// render contexts.
package queue

import "sync"

// Queue is a thread-safe FIFO on a ring buffer. With a positive limit a full
// queue overwrites its oldest item, so a sample buffer nobody drains stays
// bounded.
type Queue[T any] struct {
	mu      sync.Mutex
	buf     []T
	head    int
	n       int
	limit   int
	dropped int
}

// New returns an empty queue. limit <= 0 means unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range items {
		q.push(it)
	}
}

func (q *Queue[T]) push(it T) {
	if q.limit > 0 && q.n == q.limit {
		q.buf[q.head] = it
		q.head = (q.head + 1) % q.limit
		q.dropped++
		return
	}
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = it
	q.n++
}

func (q *Queue[T]) grow() {
	size := max(2*len(q.buf), 8)
	if q.limit > 0 {
		size = min(size, q.limit)
	}
	next := make([]T, size)
	q.copyTo(next)
	q.buf, q.head = next, 0
}

func (q *Queue[T]) copyTo(dst []T) {
	for i := 0; i < q.n; i++ {
		dst[i] = q.buf[(q.head+i)%len(q.buf)]
	}
}

// Pop removes the oldest item. ok is false when empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return item, false
	}
	var zero T
	item, q.buf[q.head] = q.buf[q.head], zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *Queue[T]) Empty() bool { return q.Len() == 0 }

// Dropped counts items overwritten because the queue was full.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain returns every item oldest first and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, q.n)
	q.copyTo(out)
	q.reset()
	return out
}

// Clear discards every item. Dropped is kept.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reset()
}

func (q *Queue[T]) reset() {
	clear(q.buf)
	q.head, q.n = 0, 0
}
