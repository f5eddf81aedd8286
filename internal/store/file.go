package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// FileRecord keeps one JSON document per file. Save writes a sibling temp
// file and renames it over the target, so readers see the old or the new
// document and never a torn one.
type FileRecord[T any] struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func NewFileRecord[T any](fs afero.Fs, path string) *FileRecord[T] {
	return &FileRecord[T]{fs: fs, path: path}
}

func (r *FileRecord[T]) Load(_ context.Context) (T, error) {
	var v T
	b, err := afero.ReadFile(r.fs, r.path)
	if errors.Is(err, os.ErrNotExist) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("read %s: %w", r.path, err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return v, nil
}

func (r *FileRecord[T]) Save(ctx context.Context, v T) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp := r.path + ".tmp-" + uuid.NewString()
	if err := r.writeTemp(tmp, b); err != nil {
		_ = r.fs.Remove(tmp)
		return err
	}
	if err := r.fs.Rename(tmp, r.path); err != nil {
		_ = r.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	log.Debug().Str("module", "store.file").Str("path", r.path).Int("bytes", len(b)).Msg("saved")
	return nil
}

func (r *FileRecord[T]) writeTemp(tmp string, b []byte) error {
	f, err := r.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	return f.Close()
}
