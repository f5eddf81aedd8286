package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.MaxMembers)
	assert.Equal(t, 50, cfg.LogWindow)
	assert.Equal(t, 25*time.Second, cfg.PollTimeout)
	assert.Equal(t, 10*time.Minute, cfg.GraceWindow)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, int64(1000), cfg.Policy.MinIntervalMs)
	assert.True(t, cfg.Policy.BlockPII)
	assert.Equal(t, []string{"lobby", "random", "games"}, cfg.Rooms)
	assert.Equal(t, 10.0, cfg.FrameRate)
	assert.Equal(t, 8, cfg.MaxDroppedFrames)
	assert.Equal(t, "strike", cfg.Backpressure)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
}

func TestLoadFile_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	body := []byte(`
port: 9090
max_members: 3
poll_timeout: 2s
rooms: [alpha]
store:
  backend: sqlite
  sqlite_path: /tmp/x.db
policy:
  max_length: 80
  banned_words: [spam]
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 3, cfg.MaxMembers)
	assert.Equal(t, 2*time.Second, cfg.PollTimeout)
	assert.Equal(t, []string{"alpha"}, cfg.Rooms)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 80, cfg.Policy.MaxLength)
	assert.Equal(t, []string{"spam"}, cfg.Policy.BannedWords)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("CHAT_PORT", "7070")
	t.Setenv("CHAT_STORE_BACKEND", "sqlite")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestValidate_RejectsUnknownBackpressure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backpressure: ignore\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "backpressure")
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: redis\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "unknown store backend")
}
