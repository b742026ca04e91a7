package geometry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lootsense/extension/internal/cache"
	"github.com/lootsense/extension/internal/logging"
)

// Strategy tries to produce a shape for a key. It returns ErrNoGeometry (or
// wraps it) when it simply has nothing; any other error is logged once.
type Strategy interface {
	Name() string
	Resolve(k Key) (Handle, error)
}

// MeshSource is implemented by hosts that can extract a custom mesh for a block.
type MeshSource interface {
	MeshFor(voxelType, entityType string) (id string, min, max mgl64.Vec3, ok bool)
}

// ShapeSource is implemented by hosts that expose a block's collision/selection box.
type ShapeSource interface {
	ShapeBounds(voxelType string) (min, max mgl64.Vec3, ok bool)
}

// MeshStrategy wraps a host MeshSource.
type MeshStrategy struct {
	Source MeshSource
}

func (MeshStrategy) Name() string { return "mesh" }

func (s MeshStrategy) Resolve(k Key) (Handle, error) {
	if s.Source == nil {
		return Handle{}, ErrNoGeometry
	}
	id, lo, hi, ok := s.Source.MeshFor(k.VoxelType, k.EntityType)
	if !ok {
		return Handle{}, ErrNoGeometry
	}
	return newBounded(id, "mesh", lo, hi)
}

// ShapeStrategy wraps a host ShapeSource.
type ShapeStrategy struct {
	Source ShapeSource
}

func (ShapeStrategy) Name() string { return "shape" }

func (s ShapeStrategy) Resolve(k Key) (Handle, error) {
	if s.Source == nil {
		return Handle{}, ErrNoGeometry
	}
	lo, hi, ok := s.Source.ShapeBounds(k.VoxelType)
	if !ok {
		return Handle{}, ErrNoGeometry
	}
	return newBounded("shape:"+k.VoxelType, "shape", lo, hi)
}

func newBounded(id, source string, lo, hi mgl64.Vec3) (Handle, error) {
	for i := 0; i < 3; i++ {
		if hi[i] <= lo[i] {
			return Handle{}, fmt.Errorf("%s %q has degenerate bounds %v..%v: %w", source, id, lo, hi, ErrNoGeometry)
		}
	}
	return Handle{ID: id, Source: source, Min: lo, Max: hi}, nil
}

// Resolver tries its strategies in order and falls back to the unit cube.
// Results, including fallbacks, are cached per key for the session.
type Resolver struct {
	strategies []Strategy
	cache      *cache.TypeCache[Key, Handle]
	dedupe     *logging.Deduper
	logger     *slog.Logger
}

// NewResolver creates a resolver; a nil logger uses slog.Default().
func NewResolver(logger *slog.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		strategies: strategies,
		cache:      cache.NewTypeCache[Key, Handle](),
		dedupe:     logging.NewDeduper(0),
		logger:     logger,
	}
}

// Resolve returns the shape for k. It always succeeds.
func (r *Resolver) Resolve(k Key) Handle {
	return r.cache.GetOrCompute(k, func() Handle {
		return r.resolve(k)
	})
}

// Cached returns the number of resolved keys.
func (r *Resolver) Cached() int {
	return r.cache.Len()
}

func (r *Resolver) resolve(k Key) Handle {
	for _, s := range r.strategies {
		h, err := r.try(s, k)
		if err == nil {
			return h
		}
		if !errors.Is(err, ErrNoGeometry) {
			r.dedupe.Warn(r.logger, s.Name()+":"+k.String(), "Geometry strategy failed, trying next",
				"strategy", s.Name(), "key", k.String(), "error", err)
		}
	}
	return UnitCube()
}

// try shields the chain from host panics inside a strategy.
func (r *Resolver) try(s Strategy, k Key) (h Handle, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)
		}
	}()
	return s.Resolve(k)
}
