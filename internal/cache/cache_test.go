package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeCache_NewTypeCache(t *testing.T) {
	c := NewTypeCache[uint32, bool]()

	require.NotNil(t, c)
	assert.NotNil(t, c.entries)
	assert.Equal(t, 0, c.Len())
}

func TestTypeCache_Get(t *testing.T) {
	c := NewTypeCache[string, int]()

	c.GetOrCompute("chest", func() int { return 42 })

	v, ok := c.Get("chest")
	require.True(t, ok, "expected to find chest")
	assert.Equal(t, 42, v)

	_, ok = c.Get("barrel")
	assert.False(t, ok, "expected not to find barrel")
}

func TestTypeCache_GetOrCompute_ComputesOnce(t *testing.T) {
	c := NewTypeCache[string, bool]()
	calls := 0

	for i := 0; i < 3; i++ {
		v := c.GetOrCompute("crate", func() bool {
			calls++
			return true
		})
		assert.True(t, v)
	}

	assert.Equal(t, 1, calls)
}

func TestTypeCache_GetOrCompute_FirstValueWins(t *testing.T) {
	c := NewTypeCache[string, int]()
	c.GetOrCompute("safe", func() int { return 1 })

	v := c.GetOrCompute("safe", func() int { return 2 })
	assert.Equal(t, 1, v)
}

func TestTypeCache_ConcurrentGetOrCompute(t *testing.T) {
	c := NewTypeCache[int, int]()
	var computed atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			got := c.GetOrCompute(id%5, func() int {
				computed.Add(1)
				return id % 5
			})
			assert.Equal(t, id%5, got)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
	assert.GreaterOrEqual(t, computed.Load(), int32(5))
}
