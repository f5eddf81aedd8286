package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatroom/internal/config"
)

func openTestStores(t *testing.T) *Stores {
	t.Helper()
	s, err := Open(config.StoreConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "chat.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLRecord_LoadMissingIsNotFound(t *testing.T) {
	s := openTestStores(t)
	_, err := s.Topics.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRecord_SaveOverwrites(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()

	require.NoError(t, s.Topics.Save(ctx, []string{"first"}))
	require.NoError(t, s.Topics.Save(ctx, []string{"second", "third"}))

	got, err := s.Topics.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, got)
}

func TestSQLRecord_KeysAreIndependent(t *testing.T) {
	s := openTestStores(t)
	ctx := context.Background()

	require.NoError(t, s.Topics.Save(ctx, []string{"t"}))
	_, err := s.Bans.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(config.StoreConfig{Backend: "etcd"})
	assert.ErrorContains(t, err, "unknown store backend")
}
