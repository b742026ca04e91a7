package classify

import (
	"errors"

	"github.com/lootsense/extension/internal/host"
)

type fakeEntity struct {
	name   string
	fields host.Fields
}

func (e fakeEntity) TypeName() string    { return e.name }
func (e fakeEntity) Fields() host.Fields { return e.fields }

type fakeWorld struct {
	invalid  bool
	unloaded map[host.Pos]bool
	voxels   map[host.Pos]host.Voxel
	entities map[host.Pos]host.Entity
	failAt   map[host.Pos]bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		unloaded: map[host.Pos]bool{},
		voxels:   map[host.Pos]host.Voxel{},
		entities: map[host.Pos]host.Entity{},
		failAt:   map[host.Pos]bool{},
	}
}

func (w *fakeWorld) Valid() bool                     { return !w.invalid }
func (w *fakeWorld) IsRegionLoaded(p host.Pos) bool { return !w.unloaded[p] }

func (w *fakeWorld) VoxelAt(p host.Pos) (host.Voxel, error) {
	if w.failAt[p] {
		return host.Voxel{}, errors.New("chunk read failed")
	}
	return w.voxels[p], nil
}

func (w *fakeWorld) AttachedEntity(p host.Pos) (host.Entity, bool) {
	e, ok := w.entities[p]
	return e, ok
}
