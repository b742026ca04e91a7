// Package marker holds the live set of positions believed to contain unopened loot.
package marker

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lootsense/extension/internal/geometry"
	"github.com/lootsense/extension/internal/host"
)

// Marker is an immutable tracked position with the geometry used to draw it.
// Updates replace the whole value.
type Marker struct {
	Pos         host.Pos
	Geometry    geometry.Handle
	PivotOffset mgl64.Vec3
	LocalCenter mgl64.Vec3
	Rotation    mgl64.Quat
	// LastSeen is the monotonic time, in seconds, of the last confirmation.
	LastSeen float64
}

// New builds a marker for p, deriving pivot and centre from the shape bounds.
func New(p host.Pos, h geometry.Handle, rotation mgl64.Quat, now float64) Marker {
	return Marker{
		Pos:         p,
		Geometry:    h,
		PivotOffset: h.PivotOffset(),
		LocalCenter: h.LocalCenter(),
		Rotation:    rotation,
		LastSeen:    now,
	}
}

// Refreshed returns a copy confirmed at now.
func (m Marker) Refreshed(now float64) Marker {
	m.LastSeen = now
	return m
}

// WorldCenter is the marker's highlight centre in world space.
func (m Marker) WorldCenter() mgl64.Vec3 {
	return m.Pos.Vec().Add(m.LocalCenter)
}
