package session

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lootsense/extension/internal/host"
)

type entity struct {
	name   string
	fields host.MapFields
}

func (e entity) TypeName() string    { return e.name }
func (e entity) Fields() host.Fields { return e.fields }

type world struct {
	voxels   map[host.Pos]host.Voxel
	entities map[host.Pos]host.Entity
	// onVoxel runs before each voxel lookup.
	onVoxel func()
}

func newWorld() *world {
	return &world{voxels: map[host.Pos]host.Voxel{}, entities: map[host.Pos]host.Entity{}}
}

func (w *world) Valid() bool                 { return true }
func (w *world) IsRegionLoaded(host.Pos) bool { return true }

func (w *world) VoxelAt(p host.Pos) (host.Voxel, error) {
	if w.onVoxel != nil {
		w.onVoxel()
	}
	return w.voxels[p], nil
}

func (w *world) AttachedEntity(p host.Pos) (host.Entity, bool) {
	e, ok := w.entities[p]
	return e, ok
}

// addChest places an unopened loot container and returns its field bag.
func (w *world) addChest(p host.Pos) host.MapFields {
	fields := host.MapFields{"bTouched": false}
	w.voxels[p] = host.Voxel{Type: "cntWoodenChest"}
	w.entities[p] = entity{name: "TileEntityLootContainer", fields: fields}
	return fields
}

type player struct {
	pos  mgl64.Vec3
	dead bool
}

func (p *player) Position() mgl64.Vec3 { return p.pos }
func (p *player) Alive() bool          { return !p.dead }

type progression struct{ rank int }

func (p *progression) PerkRank(host.Player, string) int { return p.rank }

type fakeHost struct {
	world       *world
	player      *player
	progression *progression
	panics      bool
}

func newHost(rank int) *fakeHost {
	return &fakeHost{
		world:       newWorld(),
		player:      &player{pos: mgl64.Vec3{0.5, 0.5, 0.5}},
		progression: &progression{rank: rank},
	}
}

func (h *fakeHost) World() host.World {
	if h.panics {
		panic("world lookup exploded")
	}
	if h.world == nil {
		return nil
	}
	return h.world
}

func (h *fakeHost) Player() host.Player {
	if h.player == nil {
		return nil
	}
	return h.player
}

func (h *fakeHost) Progression() host.Progression { return h.progression }

type camera struct{}

func (camera) Name() string         { return "main" }
func (camera) Gameplay() bool       { return true }
func (camera) Position() mgl64.Vec3 { return mgl64.Vec3{0.5, 1.6, 0.5} }

type renderer struct {
	acquires, releases int
	billboards, boxes  []host.DrawCall
}

func (r *renderer) Acquire() error           { r.acquires++; return nil }
func (r *renderer) Release()                 { r.releases++ }
func (r *renderer) OriginOffset() mgl64.Vec3 { return mgl64.Vec3{} }

func (r *renderer) DrawBillboard(c host.DrawCall) error {
	r.billboards = append(r.billboards, c)
	return nil
}

func (r *renderer) DrawBox(c host.DrawCall) error {
	r.boxes = append(r.boxes, c)
	return nil
}
