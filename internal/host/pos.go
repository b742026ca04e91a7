package host

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pos is a whole-voxel coordinate. It is comparable and used as a map key.
type Pos struct {
	X, Y, Z int
}

// PosFromVec floors a world position to the voxel containing it.
func PosFromVec(v mgl64.Vec3) Pos {
	return Pos{
		X: int(math.Floor(v[0])),
		Y: int(math.Floor(v[1])),
		Z: int(math.Floor(v[2])),
	}
}

// Add returns p offset by o.
func (p Pos) Add(o Pos) Pos {
	return Pos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// LenSq is the squared length of p treated as an offset.
func (p Pos) LenSq() int {
	return p.X*p.X + p.Y*p.Y + p.Z*p.Z
}

// Vec returns the voxel's minimum corner.
func (p Pos) Vec() mgl64.Vec3 {
	return mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
}

// Center returns the middle of the voxel.
func (p Pos) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(p.X) + 0.5, float64(p.Y) + 0.5, float64(p.Z) + 0.5}
}

// DistSq is the squared distance between the voxel centre and v.
func (p Pos) DistSq(v mgl64.Vec3) float64 {
	d := p.Center().Sub(v)
	return d.Dot(d)
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}
