// Package store provides the versioned local persistence layer for
// schedule records, sync state, and the voice-cache index. It is a small
// key-value surface backed by the pure-Go SQLite driver via GORM.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caredose/caredose/internal/models"
)

// Persisted keys. Everything the engine stores lives under one of these.
const (
	KeyRecordsV2     = "reminders.v2"
	KeyRecordsV1     = "reminders.v1"
	KeyMigrationDone = "reminders.migrated.v2"
	KeySyncState     = "sync.state"
	KeyVoiceIndex    = "voice.paths"
	KeyPendingAlerts = "notify.pending"
	KeyPendingAlarms = "alarm.pending"

	ConfirmationPrefix = "confirm."
)

// Store wraps the GORM database connection with Caredose-specific
// operations.
type Store struct {
	db   *gorm.DB
	path string

	// defaultPlatform is the schedule variant written for records
	// synthesized by the v1 migration.
	defaultPlatform models.PlatformKind
}

// Config holds store configuration options.
type Config struct {
	Path            string
	Debug           bool
	DefaultPlatform models.PlatformKind
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		Debug:           false,
		DefaultPlatform: models.PlatformNotificationBatch,
	}
}

// kvEntry is one persisted key-value row.
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM.
func (kvEntry) TableName() string {
	return "kv_entries"
}

// New opens (creating if needed) the store at the configured path and runs
// auto-migrations.
func New(cfg Config) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode for simpler transaction handling with the
	// pure-Go SQLite driver.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	platform := cfg.DefaultPlatform
	if platform == "" {
		platform = models.PlatformNotificationBatch
	}

	return &Store{db: db, path: cfg.Path, defaultPlatform: platform}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
