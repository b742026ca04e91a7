// Package classify decides whether a world position holds unopened loot.
//
// The policy is conservative: anything whose opened state cannot be read from
// a recognised field is skipped, never reported as unopened.
package classify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lootsense/extension/internal/cache"
	"github.com/lootsense/extension/internal/host"
	"github.com/lootsense/extension/internal/logging"
)

var (
	// ErrNoWorld is returned when the world handle is nil or no longer valid.
	ErrNoWorld = errors.New("world unavailable")
	// ErrRegionUnloaded is reported by Result.Err for positions in unloaded regions.
	ErrRegionUnloaded = errors.New("region not loaded")
)

// Kind is the classification outcome.
type Kind int

const (
	Skip Kind = iota
	LootableUnopened
	LootableOpened
)

func (k Kind) String() string {
	switch k {
	case LootableUnopened:
		return "unopened"
	case LootableOpened:
		return "opened"
	default:
		return "skip"
	}
}

// Reason explains a Skip.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonRegionUnloaded Reason = "region-unloaded"
	ReasonAir            Reason = "air"
	ReasonDoor           Reason = "door"
	ReasonNotContainer   Reason = "not-container"
	ReasonUnknownState   Reason = "unknown-state"
	ReasonError          Reason = "error"
)

// Meta carries what the scanner needs to build a marker.
type Meta struct {
	Type       TypeID
	TypeName   string
	EntityType string
	VoxelMeta  int
	// Signal is the field that decided the opened state.
	Signal string
	Reason Reason
}

// Result is a classification with its metadata.
type Result struct {
	Kind Kind
	Meta Meta
}

type entityKind int

const (
	entityOther entityKind = iota
	entityDoor
	entityContainer
)

// Err maps skip reasons caused by host state to sentinel errors. It is nil for
// every other result.
func (r Result) Err() error {
	if r.Kind == Skip && r.Meta.Reason == ReasonRegionUnloaded {
		return ErrRegionUnloaded
	}
	return nil
}

// Classifier applies Rules to world positions. Per-type structural results are
// cached for the session; opened state is always read fresh.
type Classifier struct {
	rules       Rules
	registry    *Registry
	lootable    *cache.TypeCache[TypeID, bool]
	entityKinds *cache.TypeCache[string, entityKind]
	logger      *slog.Logger
	dedupe      *logging.Deduper
}

// New creates a Classifier. A nil logger uses slog.Default().
func New(rules Rules, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		rules:       rules,
		registry:    NewRegistry(),
		lootable:    cache.NewTypeCache[TypeID, bool](),
		entityKinds: cache.NewTypeCache[string, entityKind](),
		logger:      logger,
		dedupe:      logging.NewDeduper(0),
	}
}

// CachedTypes returns how many voxel types have a cached lootable verdict.
func (c *Classifier) CachedTypes() int {
	return c.lootable.Len()
}

// Classify inspects the voxel at p. A non-nil error always comes with a Skip result.
func (c *Classifier) Classify(w host.World, p host.Pos) (Result, error) {
	if w == nil || !w.Valid() {
		return skip(ReasonError), ErrNoWorld
	}
	if !w.IsRegionLoaded(p) {
		return skip(ReasonRegionUnloaded), nil
	}

	voxel, err := w.VoxelAt(p)
	if err != nil {
		return skip(ReasonError), fmt.Errorf("voxel at %s: %w", p, err)
	}
	if voxel.IsAir() {
		return skip(ReasonAir), nil
	}

	meta := Meta{
		Type:      c.registry.ID(voxel.Type),
		TypeName:  voxel.Type,
		VoxelMeta: voxel.Meta,
	}

	if ent, ok := w.AttachedEntity(p); ok && ent != nil {
		return c.classifyEntity(ent, meta), nil
	}
	return c.classifyVoxel(voxel, meta), nil
}

// StillValid reports whether p still classifies as unopened loot.
func (c *Classifier) StillValid(w host.World, p host.Pos) bool {
	res, err := c.Classify(w, p)
	return err == nil && res.Kind == LootableUnopened
}

func (c *Classifier) classifyEntity(ent host.Entity, meta Meta) Result {
	typeName := ent.TypeName()
	meta.EntityType = typeName

	kind := c.entityKinds.GetOrCompute(typeName, func() entityKind {
		switch {
		case c.rules.IsDoorLike(typeName):
			return entityDoor
		case c.rules.IsContainerLike(typeName):
			return entityContainer
		default:
			return entityOther
		}
	})

	switch kind {
	case entityDoor:
		meta.Reason = ReasonDoor
		return Result{Kind: Skip, Meta: meta}
	case entityOther:
		meta.Reason = ReasonNotContainer
		return Result{Kind: Skip, Meta: meta}
	}

	return c.fromOpenedState(ent.Fields(), meta)
}

func (c *Classifier) classifyVoxel(voxel host.Voxel, meta Meta) Result {
	lootable := c.lootable.GetOrCompute(meta.Type, func() bool {
		return c.looksLootable(voxel)
	})
	if !lootable {
		if c.rules.IsDoorLike(voxel.Type) {
			c.dedupe.Do("door:"+voxel.Type, func() {
				c.logger.Debug("Ignoring door-like block type", "type", voxel.Type)
			})
			meta.Reason = ReasonDoor
		} else {
			meta.Reason = ReasonNotContainer
		}
		return Result{Kind: Skip, Meta: meta}
	}
	return c.fromOpenedState(voxel.Props, meta)
}

// looksLootable is the structural, per-type heuristic.
func (c *Classifier) looksLootable(voxel host.Voxel) bool {
	if c.rules.IsDoorLike(voxel.Type) {
		return false
	}
	if c.rules.IsContainerLike(voxel.Type) {
		return true
	}
	if voxel.Props == nil {
		return false
	}
	for _, name := range c.rules.LootListProperties {
		if v, ok := voxel.Props.Bool(name); ok && v {
			return true
		}
		if v, ok := voxel.Props.Int(name); ok && v != 0 {
			return true
		}
	}
	return false
}

func (c *Classifier) fromOpenedState(f host.Fields, meta Meta) Result {
	opened, signal, known := c.openedState(f)
	if !known {
		meta.Reason = ReasonUnknownState
		return Result{Kind: Skip, Meta: meta}
	}
	meta.Signal = signal
	if opened {
		return Result{Kind: LootableOpened, Meta: meta}
	}
	return Result{Kind: LootableUnopened, Meta: meta}
}

// openedState probes fields in priority order: a set player-storage flag means
// opened; then explicit touched/opened flags; then a world-time-touched stamp.
func (c *Classifier) openedState(f host.Fields) (opened bool, signal string, known bool) {
	fr := c.rules.Fields
	if v, name, ok := host.TryBool(f, fr.PlayerStorage...); ok && v {
		return true, name, true
	}
	if v, name, ok := host.TryBool(f, fr.Touched...); ok {
		return v, name, true
	}
	if v, name, ok := host.TryInt(f, fr.WorldTimeTouched...); ok {
		return v > 0, name, true
	}
	return false, "", false
}

func skip(r Reason) Result {
	return Result{Kind: Skip, Meta: Meta{Reason: r}}
}
