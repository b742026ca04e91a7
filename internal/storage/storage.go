// Package storage defines the persistence surface for player preferences and
// profiler snapshots.
package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a preference key has never been written.
var ErrNotFound = errors.New("preference not found")

// Store is the interface all preference backends must satisfy.
type Store interface {
	// Lifecycle
	Init() error
	Close() error

	GetFloat(key string) (float64, error)
	SetFloat(key string, v float64) error
	GetString(key string) (string, error)
	SetString(key string, v string) error

	// Save flushes pending writes.
	Save() error
}

// Snapshot is one profiler sample as persisted.
type Snapshot struct {
	SessionID string
	TakenAt   time.Time
	Payload   any
}

// SnapshotRecorder is an optional interface for stores that also keep
// profiler snapshots.
type SnapshotRecorder interface {
	RecordSnapshot(s Snapshot) error
}
