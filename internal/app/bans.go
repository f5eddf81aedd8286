package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatroom/internal/domain"
	"github.com/dkeye/chatroom/internal/store"
)

var (
	ErrBanNotFound = errors.New("ban not found")
	ErrBanInvalid  = errors.New("ban needs a type and a value")
)

// BanList is read by every join and written only by admin operations.
// Writers build a new slice and publish it with one pointer store.
type BanList struct {
	clk  clock.Clock
	rec  store.Record[[]domain.BanEntry]
	wmu  sync.Mutex
	bans atomic.Pointer[[]domain.BanEntry]
}

func NewBanList(clk clock.Clock, rec store.Record[[]domain.BanEntry]) *BanList {
	b := &BanList{clk: clk, rec: rec}
	empty := []domain.BanEntry{}
	b.bans.Store(&empty)
	return b
}

// Load reads the persisted list; a missing or malformed record yields an empty list.
func (b *BanList) Load(ctx context.Context) {
	bans, err := b.rec.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("module", "app.bans").Msg("load ban list, starting empty")
		}
		bans = []domain.BanEntry{}
	}
	b.bans.Store(&bans)
	log.Info().Str("module", "app.bans").Int("count", len(bans)).Msg("ban list loaded")
}

// Match returns the first active ban on client or ip.
func (b *BanList) Match(client domain.ClientID, ip string) (domain.BanEntry, bool) {
	now := b.clk.Now()
	for _, ban := range *b.bans.Load() {
		if ban.Active(now) && ban.Matches(client, ip) {
			return ban, true
		}
	}
	return domain.BanEntry{}, false
}

// List returns the bans that are still active.
func (b *BanList) List() []domain.BanEntry {
	now := b.clk.Now()
	all := *b.bans.Load()
	out := make([]domain.BanEntry, 0, len(all))
	for _, ban := range all {
		if ban.Active(now) {
			out = append(out, ban)
		}
	}
	return out
}

func (b *BanList) Add(ctx context.Context, ban domain.BanEntry) (domain.BanEntry, error) {
	if ban.Value == "" || (ban.Type != domain.BanClientID && ban.Type != domain.BanIP) {
		return domain.BanEntry{}, ErrBanInvalid
	}
	if ban.ID == "" {
		ban.ID = uuid.NewString()
	}
	ban.CreatedAt = b.clk.Now().UTC()

	b.wmu.Lock()
	defer b.wmu.Unlock()
	next := append(slices.Clone(*b.bans.Load()), ban)
	log.Info().Str("module", "app.bans").Str("type", string(ban.Type)).Str("value", ban.Value).Msg("ban added")
	return ban, b.publish(ctx, next)
}

func (b *BanList) Remove(ctx context.Context, id string) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	cur := *b.bans.Load()
	i := slices.IndexFunc(cur, func(e domain.BanEntry) bool { return e.ID == id })
	if i < 0 {
		return ErrBanNotFound
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	log.Info().Str("module", "app.bans").Str("id", id).Msg("ban removed")
	return b.publish(ctx, next)
}

// PruneExpired drops expired entries and returns how many were removed.
func (b *BanList) PruneExpired(ctx context.Context) (int, error) {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	now := b.clk.Now()
	cur := *b.bans.Load()
	next := slices.DeleteFunc(slices.Clone(cur), func(e domain.BanEntry) bool { return !e.Active(now) })
	removed := len(cur) - len(next)
	if removed == 0 {
		return 0, nil
	}
	return removed, b.publish(ctx, next)
}

// publish swaps in memory first; a failed save is reported but the new list
// stays in effect.
func (b *BanList) publish(ctx context.Context, next []domain.BanEntry) error {
	b.bans.Store(&next)
	if err := b.rec.Save(ctx, next); err != nil {
		log.Error().Err(err).Str("module", "app.bans").Msg("persist ban list")
		return fmt.Errorf("persist ban list: %w", err)
	}
	return nil
}
