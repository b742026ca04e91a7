// Package sqlitestorage implements storage.Store on SQLite through GORM.
// Preferences are upserted one row per key; profiler snapshots go to their own
// table with a JSON payload.
package sqlitestorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lootsense/extension/internal/database"
	"github.com/lootsense/extension/internal/storage"
)

// PreferenceEntry is one persisted preference. Exactly one of the value
// columns is set.
type PreferenceEntry struct {
	Key         string `gorm:"primaryKey;size:64"`
	FloatValue  *float64
	StringValue *string
	UpdatedAt   time.Time
}

func (PreferenceEntry) TableName() string { return "preferences" }

// ProfileSnapshot is one profiler sample.
type ProfileSnapshot struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"index;size:36"`
	TakenAt   time.Time `gorm:"index"`
	Payload   datatypes.JSON
}

func (ProfileSnapshot) TableName() string { return "profile_snapshots" }

// Config holds configuration for the SQLite store.
type Config struct {
	// Path is the database file; empty keeps everything in memory.
	Path string
}

// Backend is the SQLite preference store.
type Backend struct {
	cfg Config
	db  *gorm.DB
}

// New creates the store. Call Init before use.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init opens the database and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.OpenSqlite(b.cfg.Path)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&PreferenceEntry{}, &ProfileSnapshot{}); err != nil {
		_ = database.Close(db)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.db = db
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := database.Close(b.db)
	b.db = nil
	return err
}

func (b *Backend) get(key string) (PreferenceEntry, error) {
	var e PreferenceEntry
	err := b.db.Where("key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return e, fmt.Errorf("reading preference %s: %w", key, err)
	}
	return e, nil
}

func (b *Backend) upsert(e PreferenceEntry) error {
	e.UpdatedAt = time.Now()
	err := b.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"float_value", "string_value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("writing preference %s: %w", e.Key, err)
	}
	return nil
}

func (b *Backend) GetFloat(key string) (float64, error) {
	e, err := b.get(key)
	if err != nil {
		return 0, err
	}
	if e.FloatValue == nil {
		return 0, fmt.Errorf("%s is not numeric: %w", key, storage.ErrNotFound)
	}
	return *e.FloatValue, nil
}

func (b *Backend) SetFloat(key string, v float64) error {
	return b.upsert(PreferenceEntry{Key: key, FloatValue: &v})
}

func (b *Backend) GetString(key string) (string, error) {
	e, err := b.get(key)
	if err != nil {
		return "", err
	}
	if e.StringValue == nil {
		return "", fmt.Errorf("%s is not a string: %w", key, storage.ErrNotFound)
	}
	return *e.StringValue, nil
}

func (b *Backend) SetString(key string, v string) error {
	return b.upsert(PreferenceEntry{Key: key, StringValue: &v})
}

// Save checkpoints the write-ahead log so the file is self-contained.
func (b *Backend) Save() error {
	if b.cfg.Path == "" {
		return nil
	}
	if err := b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error; err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// RecordSnapshot stores s with its payload encoded as JSON.
func (b *Backend) RecordSnapshot(s storage.Snapshot) error {
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	row := ProfileSnapshot{
		SessionID: s.SessionID,
		TakenAt:   s.TakenAt,
		Payload:   datatypes.JSON(payload),
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Snapshots returns the snapshots of a session, oldest first.
func (b *Backend) Snapshots(sessionID string) ([]ProfileSnapshot, error) {
	var rows []ProfileSnapshot
	err := b.db.Where("session_id = ?", sessionID).Order("taken_at, id").Find(&rows).Error
	return rows, err
}
