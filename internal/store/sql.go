package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/chatroom/internal/domain"
)

// recordRow holds one keyed JSON document.
type recordRow struct {
	Name      string    `gorm:"primarykey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for recordRow.
func (recordRow) TableName() string {
	return "records"
}

// OpenSQLite opens (or creates) the database file and migrates the schema.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}
	log.Info().Str("module", "store.sql").Str("path", path).Msg("sqlite store opened")
	return db, nil
}

func NewSQLStores(db *gorm.DB) *Stores {
	return &Stores{
		Policy: NewSQLRecord[domain.ModerationPolicy](db, keyPolicy),
		Bans:   NewSQLRecord[[]domain.BanEntry](db, keyBans),
		Topics: NewSQLRecord[[]string](db, keyTopics),
	}
}

// SQLRecord stores its value as one row of the records table. A save is a
// single upsert, so it is atomic.
type SQLRecord[T any] struct {
	db  *gorm.DB
	key string
}

func NewSQLRecord[T any](db *gorm.DB, key string) *SQLRecord[T] {
	return &SQLRecord[T]{db: db, key: key}
}

func (r *SQLRecord[T]) Load(ctx context.Context) (T, error) {
	var v T
	var row recordRow
	if err := r.db.WithContext(ctx).First(&row, "name = ?", r.key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return v, ErrNotFound
		}
		return v, fmt.Errorf("failed to load %s: %w", r.key, err)
	}
	if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return v, nil
}

func (r *SQLRecord[T]) Save(ctx context.Context, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	row := recordRow{Name: r.key, Value: string(b), UpdatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save %s: %w", r.key, err)
	}
	return nil
}
