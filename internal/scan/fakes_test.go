package scan

import (
	"github.com/lootsense/extension/internal/classify"
	"github.com/lootsense/extension/internal/host"
)

type entity struct {
	name   string
	fields host.MapFields
}

func (e entity) TypeName() string    { return e.name }
func (e entity) Fields() host.Fields { return e.fields }

type world struct {
	invalid  bool
	voxels   map[host.Pos]host.Voxel
	entities map[host.Pos]host.Entity
}

func newWorld() *world {
	return &world{voxels: map[host.Pos]host.Voxel{}, entities: map[host.Pos]host.Entity{}}
}

func (w *world) Valid() bool                 { return !w.invalid }
func (w *world) IsRegionLoaded(host.Pos) bool { return true }

func (w *world) VoxelAt(p host.Pos) (host.Voxel, error) {
	return w.voxels[p], nil
}

func (w *world) AttachedEntity(p host.Pos) (host.Entity, bool) {
	e, ok := w.entities[p]
	return e, ok
}

// recordingClassifier records every position it is asked about.
type recordingClassifier struct {
	seen    []host.Pos
	panicAt map[host.Pos]bool
	failAt  map[host.Pos]error
}

func (c *recordingClassifier) Classify(_ host.World, p host.Pos) (classify.Result, error) {
	c.seen = append(c.seen, p)
	if c.panicAt[p] {
		panic("host blew up")
	}
	if err := c.failAt[p]; err != nil {
		return classify.Result{}, err
	}
	return classify.Result{Kind: classify.Skip}, nil
}
