package main

import (
	"fmt"
	"log/slog"

	"github.com/lootsense/extension/internal/config"
	"github.com/lootsense/extension/internal/storage"
	"github.com/lootsense/extension/internal/storage/memory"
	sqlitestorage "github.com/lootsense/extension/internal/storage/sqlite"
)

// storeBackend is what the simulator needs from a preference store: the
// store itself and snapshot recording for the profiler.
type storeBackend interface {
	storage.Store
	storage.SnapshotRecorder
}

func createStorageBackend(cfg config.StorageConfig, logger *slog.Logger) (storeBackend, error) {
	switch cfg.Type {
	case "sqlite":
		backend := sqlitestorage.New(sqlitestorage.Config{Path: cfg.SQLite.Path})
		logger.Info("SQLite preference store selected", "path", cfg.SQLite.Path)
		return backend, nil

	case "memory", "":
		logger.Info("Memory preference store selected")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
