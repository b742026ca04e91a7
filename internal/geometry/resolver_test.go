package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeshes struct {
	calls int
	meshes map[string][2]mgl64.Vec3
}

func (f *fakeMeshes) MeshFor(voxelType, entityType string) (string, mgl64.Vec3, mgl64.Vec3, bool) {
	f.calls++
	b, ok := f.meshes[voxelType]
	if !ok {
		return "", mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return "mesh:" + voxelType, b[0], b[1], true
}

type fakeShapes map[string][2]mgl64.Vec3

func (f fakeShapes) ShapeBounds(voxelType string) (mgl64.Vec3, mgl64.Vec3, bool) {
	b, ok := f[voxelType]
	return b[0], b[1], ok
}

type failingStrategy struct{ err error }

func (failingStrategy) Name() string                  { return "failing" }
func (f failingStrategy) Resolve(Key) (Handle, error) { return Handle{}, f.err }

type panickingStrategy struct{}

func (panickingStrategy) Name() string                { return "panicking" }
func (panickingStrategy) Resolve(Key) (Handle, error) { panic("host exploded") }

func TestUnitCube(t *testing.T) {
	h := UnitCube()
	assert.True(t, h.Fallback)
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, h.LocalCenter())
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, h.PivotOffset())
}

func TestResolver_ChainOrder(t *testing.T) {
	meshes := &fakeMeshes{meshes: map[string][2]mgl64.Vec3{
		"chest": {{0.1, 0, 0.1}, {0.9, 0.8, 0.9}},
	}}
	shapes := fakeShapes{
		"chest":  {{0, 0, 0}, {1, 1, 1}},
		"barrel": {{0.2, 0, 0.2}, {0.8, 1, 0.8}},
	}
	r := NewResolver(nil, MeshStrategy{Source: meshes}, ShapeStrategy{Source: shapes})

	chest := r.Resolve(Key{VoxelType: "chest"})
	assert.Equal(t, "mesh:chest", chest.ID)
	assert.Equal(t, "mesh", chest.Source)
	assert.False(t, chest.Fallback)
	assert.InDelta(t, 0.4, chest.LocalCenter()[1], 1e-9)

	barrel := r.Resolve(Key{VoxelType: "barrel"})
	assert.Equal(t, "shape", barrel.Source)

	crate := r.Resolve(Key{VoxelType: "crate"})
	assert.True(t, crate.Fallback)
}

func TestResolver_CachesByKey(t *testing.T) {
	meshes := &fakeMeshes{meshes: map[string][2]mgl64.Vec3{}}
	r := NewResolver(nil, MeshStrategy{Source: meshes})

	for i := 0; i < 4; i++ {
		r.Resolve(Key{VoxelType: "crate", EntityType: "LootContainer"})
	}

	assert.Equal(t, 1, meshes.calls)
	assert.Equal(t, 1, r.Cached())
}

func TestResolver_ErrorsAndPanicsFallThrough(t *testing.T) {
	r := NewResolver(nil,
		failingStrategy{err: errors.New("reflection target missing")},
		panickingStrategy{},
		failingStrategy{err: ErrNoGeometry},
	)

	h := r.Resolve(Key{VoxelType: "safe"})
	require.True(t, h.Fallback)
}

func TestResolver_DegenerateBoundsRejected(t *testing.T) {
	shapes := fakeShapes{"flat": {{0, 0, 0}, {1, 0, 1}}}
	r := NewResolver(nil, ShapeStrategy{Source: shapes})

	assert.True(t, r.Resolve(Key{VoxelType: "flat"}).Fallback)
}

func TestResolver_NilSources(t *testing.T) {
	r := NewResolver(nil, MeshStrategy{}, ShapeStrategy{})
	assert.True(t, r.Resolve(Key{VoxelType: "chest"}).Fallback)
}

func TestFacingRotation(t *testing.T) {
	assert.Equal(t, mgl64.QuatIdent(), FacingRotation(0))
	assert.Equal(t, mgl64.QuatIdent(), FacingRotation(4), "only the low two bits encode facing")

	q := FacingRotation(1)
	v := q.Rotate(mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, 0, v[0], 1e-9)
	assert.InDelta(t, -1, v[2], 1e-9)

	half := FacingRotation(2).Rotate(mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, -1, half[0], 1e-9)
	assert.False(t, math.IsNaN(half[1]))
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "chest", Key{VoxelType: "chest"}.String())
	assert.Equal(t, "chest/LootContainer", Key{VoxelType: "chest", EntityType: "LootContainer"}.String())
}
