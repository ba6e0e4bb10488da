// Package sqlitekv persists key-value snapshots in an on-device SQLite file.
package sqlitekv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/petalworks/storefront-core/pkg/storage"
)

type entry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string
	UpdatedAt time.Time
}

func (entry) TableName() string { return "kv_entries" }

// Store is a SQLite-backed implementation of storage.KV.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and ensures the
// kv_entries table exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrating kv table: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key, reporting absence via ok=false.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row entry
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.Value, true, nil
}

// Set upserts the value under key. Each write replaces the full snapshot, so
// last writer wins at the snapshot level.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).
		Exec(`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, time.Now().UTC()).
		Error
}

var _ storage.KV = (*Store)(nil)
