package scan

import (
	"cmp"
	"slices"

	"github.com/lootsense/extension/internal/host"
)

// OffsetRing is every integer offset inside a sphere of the given radius,
// nearest first. Ties on squared distance are ordered by (dy, dx, dz) so the
// sequence is identical for every build with the same radius.
type OffsetRing struct {
	radius  int
	offsets []host.Pos
}

// NewOffsetRing builds the ring for radius. A radius below 1 yields an empty ring.
func NewOffsetRing(radius int) *OffsetRing {
	r := &OffsetRing{radius: radius}
	if radius < 1 {
		return r
	}

	rr := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				o := host.Pos{X: dx, Y: dy, Z: dz}
				if o.LenSq() <= rr {
					r.offsets = append(r.offsets, o)
				}
			}
		}
	}

	slices.SortFunc(r.offsets, func(a, b host.Pos) int {
		return cmp.Or(
			cmp.Compare(a.LenSq(), b.LenSq()),
			cmp.Compare(a.Y, b.Y),
			cmp.Compare(a.X, b.X),
			cmp.Compare(a.Z, b.Z),
		)
	})
	return r
}

func (r *OffsetRing) Radius() int { return r.radius }

func (r *OffsetRing) Len() int { return len(r.offsets) }

// At returns the i-th offset.
func (r *OffsetRing) At(i int) host.Pos { return r.offsets[i] }

// Offsets returns a copy of the ordered offsets.
func (r *OffsetRing) Offsets() []host.Pos {
	return slices.Clone(r.offsets)
}
