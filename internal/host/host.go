// Package host declares the surface the overlay needs from the embedding game.
// The integration glue implements these interfaces; nothing in this module
// talks to the engine any other way.
package host

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// Voxel describes the block at a world position.
// Type is the host's stable block name; the empty string and "air" are empty space.
type Voxel struct {
	Type  string
	Meta  int
	Props Fields
}

// IsAir returns true for empty space.
func (v Voxel) IsAir() bool {
	return v.Type == "" || v.Type == "air"
}

// Entity is the object attached to a voxel (tile entity, container logic...).
type Entity interface {
	TypeName() string
	Fields() Fields
}

// World is the voxel query surface.
type World interface {
	// Valid reports whether the handle still refers to a live world.
	Valid() bool
	IsRegionLoaded(p Pos) bool
	VoxelAt(p Pos) (Voxel, error)
	AttachedEntity(p Pos) (Entity, bool)
}

// Player is the local player.
type Player interface {
	Position() mgl64.Vec3
	Alive() bool
}

// Progression answers perk rank lookups.
type Progression interface {
	PerkRank(p Player, perkID string) int
}

// Camera is passed to the per-camera render hook.
type Camera interface {
	Name() string
	// Gameplay is false for UI, map, preview and other non-world cameras.
	Gameplay() bool
	// Position is in world space.
	Position() mgl64.Vec3
}

// DrawCall is one highlight draw request in render space.
type DrawCall struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    float64
	Color    colorful.Color
	Alpha    float64
	// Geometry is the resolved shape id; empty for the unit cube.
	Geometry string
}

// Renderer is the graphics surface used by the overlay.
type Renderer interface {
	// Acquire creates draw primitives (materials, meshes). Called lazily before the first pass.
	Acquire() error
	Release()
	// OriginOffset is the world to render space translation for the current frame.
	OriginOffset() mgl64.Vec3
	DrawBillboard(c DrawCall) error
	DrawBox(c DrawCall) error
}

// Host bundles the per-tick lookups the controller needs.
// Any of them may return nil while the game is loading or the player is dead.
type Host interface {
	World() World
	Player() Player
	Progression() Progression
}
