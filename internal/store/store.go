// Package store persists the small collaborator records the chat core reads
// at startup: moderation policy, ban list and topic pool.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dkeye/chatroom/internal/config"
	"github.com/dkeye/chatroom/internal/domain"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("record not found")

// Record is one persisted value, replaced as a whole on Save.
type Record[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, v T) error
}

const (
	keyPolicy = "moderation_policy"
	keyBans   = "ban_list"
	keyTopics = "topic_pool"
)

// Stores groups the records of one backend.
type Stores struct {
	Policy Record[domain.ModerationPolicy]
	Bans   Record[[]domain.BanEntry]
	Topics Record[[]string]

	close func() error
}

func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Open builds the records for the configured backend.
func Open(cfg config.StoreConfig) (*Stores, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStores(afero.NewOsFs(), cfg.Dir), nil
	case "sqlite":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s := NewSQLStores(db)
		s.close = func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func NewFileStores(fs afero.Fs, dir string) *Stores {
	return &Stores{
		Policy: NewFileRecord[domain.ModerationPolicy](fs, filepath.Join(dir, "policy.json")),
		Bans:   NewFileRecord[[]domain.BanEntry](fs, filepath.Join(dir, "bans.json")),
		Topics: NewFileRecord[[]string](fs, filepath.Join(dir, "topics.json")),
	}
}
