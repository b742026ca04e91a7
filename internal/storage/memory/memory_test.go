package memory

import (
	"testing"
	"time"

	"github.com/lootsense/extension/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Store            = (*Backend)(nil)
	_ storage.SnapshotRecorder = (*Backend)(nil)
)

func TestBackend_FloatsAndStrings(t *testing.T) {
	b := New()
	require.NoError(t, b.Init())

	_, err := b.GetFloat("opacity")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = b.GetString("color")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.SetFloat("opacity", 42))
	require.NoError(t, b.SetString("color", "#00FF00"))

	v, err := b.GetFloat("opacity")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	s, err := b.GetString("color")
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", s)

	require.NoError(t, b.Save())
	assert.Equal(t, 1, b.Saves())
	assert.NoError(t, b.Close())
}

func TestBackend_Snapshots(t *testing.T) {
	b := New()
	now := time.Now()
	require.NoError(t, b.RecordSnapshot(storage.Snapshot{SessionID: "s1", TakenAt: now, Payload: map[string]int{"markers": 3}}))

	snaps := b.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "s1", snaps[0].SessionID)

	snaps[0].SessionID = "mutated"
	assert.Equal(t, "s1", b.Snapshots()[0].SessionID)
}
