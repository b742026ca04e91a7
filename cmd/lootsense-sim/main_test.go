package main

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lootsense/extension/internal/config"
	"github.com/lootsense/extension/internal/host"
	"github.com/lootsense/extension/internal/storage/memory"
	sqlitestorage "github.com/lootsense/extension/internal/storage/sqlite"
)

func TestSimWorld_Deterministic(t *testing.T) {
	a := newSimWorld(rand.New(rand.NewPCG(7, 7)), 50, 20, 30)
	b := newSimWorld(rand.New(rand.NewPCG(7, 7)), 50, 20, 30)
	assert.Equal(t, a.voxels, b.voxels)
}

func TestSimWorld_GroundAndRegions(t *testing.T) {
	w := newSimWorld(rand.New(rand.NewPCG(1, 1)), 0, 10, 16)

	v, err := w.VoxelAt(host.Pos{Y: -1})
	require.NoError(t, err)
	assert.Equal(t, "terrStone", v.Type)

	v, err = w.VoxelAt(host.Pos{Y: 3})
	require.NoError(t, err)
	assert.True(t, v.IsAir())

	assert.False(t, w.IsRegionLoaded(host.Pos{X: 17}))
	_, err = w.VoxelAt(host.Pos{X: 17})
	assert.Error(t, err)
}

func TestSimWorld_LootNear(t *testing.T) {
	w := newSimWorld(rand.New(rand.NewPCG(1, 1)), 0, 10, 16)
	fields := host.MapFields{"bTouched": false}
	w.voxels[host.Pos{X: 2}] = host.Voxel{Type: "cntWoodenChest"}
	w.entities[host.Pos{X: 2}] = &simEntity{name: "TileEntityLootContainer", fields: fields}

	_, ok := w.lootNear(mgl64.Vec3{20, 0, 0}, 3)
	assert.False(t, ok)

	p, ok := w.lootNear(mgl64.Vec3{1, 0.5, 0.5}, 3)
	require.True(t, ok)
	assert.Equal(t, host.Pos{X: 2}, p)
	assert.Equal(t, true, fields["bTouched"])

	_, ok = w.lootNear(mgl64.Vec3{1, 0.5, 0.5}, 3)
	assert.False(t, ok, "already opened")
}

func TestWalker_StaysOnCircle(t *testing.T) {
	w := newWalker(10, 2)
	for i := 0; i < 20; i++ {
		w.advance(0.5)
		p := w.Position()
		assert.InDelta(t, 10, mgl64.Vec2{p.X(), p.Z()}.Len(), 1e-9)
	}
}

func TestCreateStorageBackend(t *testing.T) {
	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	path := filepath.Join(t.TempDir(), "prefs.db")
	b, err = createStorageBackend(config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: path}}, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)

	_, err = createStorageBackend(config.StorageConfig{Type: "postgres"}, slog.Default())
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	r, err := loadRules("")
	require.NoError(t, err)
	assert.Nil(t, r, "built-in catalog")

	path := filepath.Join(t.TempDir(), "containers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
container_keywords: [Crate, chest]
fields:
  touched: [bTouched]
`), 0o644))
	r, err = loadRules(path)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, []string{"crate", "chest"}, r.ContainerKeywords)

	_, err = loadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
