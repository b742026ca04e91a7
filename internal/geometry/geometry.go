// Package geometry resolves the renderable shape used to highlight a voxel.
package geometry

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoGeometry is returned by strategies that cannot produce a shape for a key.
var ErrNoGeometry = errors.New("no geometry for key")

// Handle is an opaque reference to a cached shape, plus its local bounds in voxel units.
type Handle struct {
	// ID is the host-side shape identifier; empty for the unit cube.
	ID       string
	Source   string
	Fallback bool
	Min, Max mgl64.Vec3
}

// UnitCube is the fallback shape: the whole voxel.
func UnitCube() Handle {
	return Handle{
		Source:   "unit-cube",
		Fallback: true,
		Min:      mgl64.Vec3{0, 0, 0},
		Max:      mgl64.Vec3{1, 1, 1},
	}
}

// LocalCenter is the middle of the shape bounds in voxel-local space.
func (h Handle) LocalCenter() mgl64.Vec3 {
	return h.Min.Add(h.Max).Mul(0.5)
}

// PivotOffset moves the shape centre onto the voxel centre so scaling happens around it.
func (h Handle) PivotOffset() mgl64.Vec3 {
	return mgl64.Vec3{0.5, 0.5, 0.5}.Sub(h.LocalCenter())
}

// Key identifies what a shape is resolved for. EntityType is empty for bare voxels.
type Key struct {
	VoxelType  string
	EntityType string
}

func (k Key) String() string {
	if k.EntityType == "" {
		return k.VoxelType
	}
	return k.VoxelType + "/" + k.EntityType
}

// FacingRotation returns the yaw for the facing encoded in the low two metadata bits.
func FacingRotation(meta int) mgl64.Quat {
	facing := meta & 3
	if facing == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(float64(facing)*mgl64.DegToRad(90), mgl64.Vec3{0, 1, 0})
}
