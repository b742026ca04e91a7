package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lootsense/extension/internal/host"
)

// prop is a block type the generator scatters over the ground.
type prop struct {
	voxel  string
	entity string
	// storage marks player-built containers.
	storage bool
	weight  int
}

var props = []prop{
	{voxel: "cntWoodenChest", entity: "TileEntityLootContainer", weight: 6},
	{voxel: "cntHardenedChest", entity: "TileEntitySecureLootContainer", weight: 2},
	{voxel: "cntBarrelWhite", entity: "TileEntityLootContainer", weight: 4},
	{voxel: "cntStorageChest", entity: "TileEntityLootContainer", storage: true, weight: 2},
	{voxel: "doorWoodenSecure", entity: "TileEntitySecureDoor", weight: 2},
	{voxel: "rockBoulder", weight: 4},
}

type simEntity struct {
	name   string
	fields host.MapFields
}

func (e *simEntity) TypeName() string    { return e.name }
func (e *simEntity) Fields() host.Fields { return e.fields }

// simWorld is a flat stone plane with scattered props. Only the tick loop
// reads it, but the looter mutates fields, so access is locked.
type simWorld struct {
	mu       sync.RWMutex
	loaded   int
	voxels   map[host.Pos]host.Voxel
	entities map[host.Pos]*simEntity
}

// newSimWorld places count props within extent of the origin. Regions beyond
// loaded blocks on either horizontal axis report unloaded.
func newSimWorld(rng *rand.Rand, count, extent, loaded int) *simWorld {
	w := &simWorld{
		loaded:   loaded,
		voxels:   make(map[host.Pos]host.Voxel, count),
		entities: make(map[host.Pos]*simEntity, count),
	}
	total := 0
	for _, p := range props {
		total += p.weight
	}
	for i := 0; i < count; i++ {
		pos := host.Pos{
			X: rng.IntN(2*extent+1) - extent,
			Y: rng.IntN(2),
			Z: rng.IntN(2*extent+1) - extent,
		}
		pick := rng.IntN(total)
		var pr prop
		for _, p := range props {
			if pick < p.weight {
				pr = p
				break
			}
			pick -= p.weight
		}
		w.voxels[pos] = host.Voxel{Type: pr.voxel, Meta: rng.IntN(4)}
		if pr.entity != "" {
			w.entities[pos] = &simEntity{
				name: pr.entity,
				fields: host.MapFields{
					"bTouched":       rng.IntN(5) == 0,
					"bPlayerStorage": pr.storage,
				},
			}
		}
	}
	return w
}

func (w *simWorld) Valid() bool { return true }

func (w *simWorld) IsRegionLoaded(p host.Pos) bool {
	return abs(p.X) <= w.loaded && abs(p.Z) <= w.loaded
}

func (w *simWorld) VoxelAt(p host.Pos) (host.Voxel, error) {
	if !w.IsRegionLoaded(p) {
		return host.Voxel{}, fmt.Errorf("region at %s not loaded", p)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if v, ok := w.voxels[p]; ok {
		return v, nil
	}
	if p.Y < 0 {
		return host.Voxel{Type: "terrStone"}, nil
	}
	return host.Voxel{}, nil
}

func (w *simWorld) AttachedEntity(p host.Pos) (host.Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[p]
	if !ok {
		return nil, false
	}
	return e, true
}

// lootNear opens the first unopened container within reach of pos and
// returns its position.
func (w *simWorld) lootNear(pos mgl64.Vec3, reach float64) (host.Pos, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, e := range w.entities {
		if p.DistSq(pos) > reach*reach {
			continue
		}
		if touched, _ := e.fields["bTouched"].(bool); touched {
			continue
		}
		e.fields["bTouched"] = true
		return p, true
	}
	return host.Pos{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// walker moves the player around a circle.
type walker struct {
	mu     sync.RWMutex
	pos    mgl64.Vec3
	radius float64
	speed  float64
	angle  float64
	alive  bool
}

func newWalker(radius, speed float64) *walker {
	return &walker{pos: mgl64.Vec3{radius, 0.5, 0}, radius: radius, speed: speed, alive: true}
}

func (w *walker) Position() mgl64.Vec3 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pos
}

func (w *walker) Alive() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.alive
}

// advance moves the player dt seconds along the circle.
func (w *walker) advance(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.radius <= 0 {
		return
	}
	w.angle += w.speed * dt / w.radius
	w.pos = mgl64.Vec3{w.radius * math.Cos(w.angle), 0.5, w.radius * math.Sin(w.angle)}
}

type fixedRank int

func (r fixedRank) PerkRank(host.Player, string) int { return int(r) }

type simHost struct {
	world  *simWorld
	player *walker
	rank   fixedRank
}

func (h *simHost) World() host.World             { return h.world }
func (h *simHost) Player() host.Player           { return h.player }
func (h *simHost) Progression() host.Progression { return h.rank }

// shapes gives barrels a narrower box than the full voxel.
type shapes struct{}

func (shapes) ShapeBounds(voxelType string) (mgl64.Vec3, mgl64.Vec3, bool) {
	if voxelType == "cntBarrelWhite" {
		return mgl64.Vec3{0.15, 0, 0.15}, mgl64.Vec3{0.85, 0.9, 0.85}, true
	}
	return mgl64.Vec3{}, mgl64.Vec3{}, false
}
