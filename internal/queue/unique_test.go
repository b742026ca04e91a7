package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coord struct{ X, Y, Z int }

func TestUniqueQueue_PushDeduplicates(t *testing.T) {
	q := NewUnique[coord]()

	added := q.Push(coord{1, 0, 0}, coord{2, 0, 0}, coord{1, 0, 0})
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, q.Len())

	added = q.Push(coord{2, 0, 0})
	assert.Equal(t, 0, added, "pending value must not be enqueued twice")
	assert.Equal(t, 2, q.Len())
}

func TestUniqueQueue_FIFO(t *testing.T) {
	q := NewUnique[int]()
	q.Push(3, 1, 2)

	for _, want := range []int{3, 1, 2} {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Pop()
	assert.False(t, ok, "expected empty queue")
}

func TestUniqueQueue_RepushAfterPop(t *testing.T) {
	q := NewUnique[int]()
	q.Push(7)

	v, ok := q.Pop()
	require.True(t, ok)

	assert.Equal(t, 1, q.Push(v), "popped value can be enqueued again")
	assert.Equal(t, 0, q.Push(v), "still queued")
	assert.Equal(t, 1, q.Len())
}

func TestUniqueQueue_Clear(t *testing.T) {
	q := NewUnique[int]()
	q.Push(1, 2, 3)

	q.Clear()

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 1, q.Push(1), "membership is cleared too")
}

func TestUniqueQueue_Concurrent(t *testing.T) {
	q := NewUnique[int]()
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(id % 50)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, q.Len())

	seen := make(map[int]bool)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		assert.False(t, seen[v], "value %d popped twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, 50)
}
