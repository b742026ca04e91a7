// Package memory is a process-local preference store. Nothing survives a restart.
package memory

import (
	"fmt"
	"sync"

	"github.com/lootsense/extension/internal/storage"
)

// Backend keeps preferences and snapshots in maps.
type Backend struct {
	mu        sync.RWMutex
	floats    map[string]float64
	strings   map[string]string
	snapshots []storage.Snapshot
	saves     int
}

func New() *Backend {
	return &Backend{
		floats:  make(map[string]float64),
		strings: make(map[string]string),
	}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

func (b *Backend) GetFloat(key string) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.floats[key]
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return v, nil
}

func (b *Backend) SetFloat(key string, v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.floats[key] = v
	return nil
}

func (b *Backend) GetString(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.strings[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return v, nil
}

func (b *Backend) SetString(key string, v string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strings[key] = v
	return nil
}

// Save only counts calls.
func (b *Backend) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// RecordSnapshot appends s.
func (b *Backend) RecordSnapshot(s storage.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, s)
	return nil
}

// Snapshots returns a copy of the recorded snapshots.
func (b *Backend) Snapshots() []storage.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]storage.Snapshot(nil), b.snapshots...)
}
