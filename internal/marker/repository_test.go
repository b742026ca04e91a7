package marker

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lootsense/extension/internal/geometry"
	"github.com/lootsense/extension/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{RechecksPerTick: 64, RangeGrace: 4, Timeout: 30}

func at(x, y, z int, now float64) Marker {
	return New(host.Pos{X: x, Y: y, Z: z}, geometry.UnitCube(), mgl64.QuatIdent(), now)
}

func always(ok bool) Validator {
	return ValidatorFunc(func(host.World, host.Pos) bool { return ok })
}

func TestMarker_NewAndRefreshed(t *testing.T) {
	m := at(1, 2, 3, 5)
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, m.LocalCenter)
	assert.Equal(t, mgl64.Vec3{}, m.PivotOffset)
	assert.Equal(t, mgl64.Vec3{1.5, 2.5, 3.5}, m.WorldCenter())

	r := m.Refreshed(9)
	assert.Equal(t, 9.0, r.LastSeen)
	assert.Equal(t, 5.0, m.LastSeen, "original is untouched")
}

func TestRepository_ApplyUpdatesOverwritesAndQueues(t *testing.T) {
	r := NewRepository(testConfig, nil)
	r.ApplyUpdates([]Marker{at(1, 0, 0, 1), at(2, 0, 0, 1)})
	r.ApplyUpdates([]Marker{at(1, 0, 0, 7)})

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, r.Pending(), "re-queued keys are not duplicated")
	m, ok := r.Get(host.Pos{X: 1})
	require.True(t, ok)
	assert.Equal(t, 7.0, m.LastSeen)

	r.ApplyUpdates(nil)
	assert.Equal(t, 2, r.Len())
}

func TestRepository_SnapshotSeesWholeBatches(t *testing.T) {
	const batchSize = 50
	r := NewRepository(testConfig, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := 0; b < 200; b++ {
			batch := make([]Marker, batchSize)
			for i := range batch {
				batch[i] = at(b, i, 0, float64(b))
			}
			r.ApplyUpdates(batch)
		}
	}()

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := r.Snapshot()
				assert.Zero(t, len(snap)%batchSize, "partial batch visible: %d markers", len(snap))
				perBatch := map[int]int{}
				for _, m := range snap {
					perBatch[m.Pos.X]++
				}
				for b, n := range perBatch {
					assert.Equal(t, batchSize, n, "batch %d partially visible", b)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200*batchSize, r.Len())
}

func TestRepository_RevalidateRemovesOutOfRange(t *testing.T) {
	r := NewRepository(testConfig, nil)
	r.ApplyUpdates([]Marker{at(20, 0, 0, 0), at(3, 0, 0, 0)})
	player := mgl64.Vec3{0.5, 0.5, 0.5}

	// 10 + 4 grace < 20
	stats := r.Revalidate(nil, player, 10, 1, always(true))
	assert.Equal(t, 1, stats.OutOfRange)
	assert.Equal(t, 1, stats.Refreshed)
	assert.Equal(t, 1, stats.Removed())
	_, ok := r.Get(host.Pos{X: 20})
	assert.False(t, ok)

	m, ok := r.Get(host.Pos{X: 3})
	require.True(t, ok)
	assert.Equal(t, 1.0, m.LastSeen)
	assert.Equal(t, 1, r.Pending(), "confirmed marker goes back in the queue")
}

func TestRepository_RevalidateGraceBoundary(t *testing.T) {
	r := NewRepository(testConfig, nil)
	r.ApplyUpdates([]Marker{at(14, 0, 0, 0)})

	// The marker centre sits exactly activeRadius+RangeGrace from the player.
	stats := r.Revalidate(nil, mgl64.Vec3{0.5, 0.5, 0.5}, 10, 1, always(true))
	assert.Equal(t, 0, stats.OutOfRange)
	assert.Equal(t, 1, r.Len())
}

func TestRepository_RevalidateInvalidAndPanic(t *testing.T) {
	r := NewRepository(testConfig, nil)
	r.ApplyUpdates([]Marker{at(1, 0, 0, 0), at(2, 0, 0, 0)})

	v := ValidatorFunc(func(_ host.World, p host.Pos) bool {
		if p.X == 1 {
			panic("entity vanished mid-read")
		}
		return false
	})
	stats := r.Revalidate(nil, mgl64.Vec3{}, 10, 1, v)
	assert.Equal(t, 2, stats.Invalid)
	assert.Equal(t, 1, stats.Panics)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Pending())
}

func TestRepository_RevalidateBoundedFIFO(t *testing.T) {
	r := NewRepository(Config{RechecksPerTick: 2, RangeGrace: 4, Timeout: 30}, nil)
	r.ApplyUpdates([]Marker{at(1, 0, 0, 0), at(2, 0, 0, 0), at(3, 0, 0, 0)})

	var checked []int
	v := ValidatorFunc(func(_ host.World, p host.Pos) bool {
		checked = append(checked, p.X)
		return true
	})
	r.Revalidate(nil, mgl64.Vec3{}, 10, 1, v)
	assert.Equal(t, []int{1, 2}, checked)

	r.Revalidate(nil, mgl64.Vec3{}, 10, 2, v)
	assert.Equal(t, []int{1, 2, 3, 1}, checked)
}

func TestRepository_RevalidateSkipsMissing(t *testing.T) {
	r := NewRepository(testConfig, nil)
	r.ApplyUpdates([]Marker{at(1, 0, 0, 0)})
	r.Prune(100)

	stats := r.Revalidate(nil, mgl64.Vec3{}, 10, 100, always(true))
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 0, stats.Checked)
	assert.Equal(t, 0, r.Len())
}

func TestRepository_PruneIsTimeCorrect(t *testing.T) {
	const t0 = 100.0
	r := NewRepository(testConfig, nil)
	r.ApplyUpdates([]Marker{at(1, 0, 0, t0)})

	for _, now := range []float64{t0, t0 + 10, t0 + 29.999, t0 + 30} {
		assert.Equal(t, 0, r.Prune(now), "now=%v", now)
		assert.Equal(t, 1, r.Len(), "now=%v", now)
	}
	assert.Equal(t, 1, r.Prune(t0+30.001))
	assert.Equal(t, 0, r.Len())
}

func TestRepository_Clear(t *testing.T) {
	r := NewRepository(testConfig, nil)
	r.ApplyUpdates([]Marker{at(1, 0, 0, 0), at(2, 0, 0, 0)})
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Pending())
	assert.Empty(t, r.Snapshot())
}
