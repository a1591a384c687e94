// Package filestore keeps the cache mapping as one human-readable JSON file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
)

type Store struct {
	path string
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("cache file path is required")
	}
	return &Store{path: path}, nil
}

// Load reads the mapping. A missing file is an empty cache, not an error.
func (s *Store) Load(_ context.Context) (sqlcache.Mapping, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sqlcache.Mapping{}, nil
		}
		return nil, fmt.Errorf("read cache file %q: %w", s.path, err)
	}
	m, err := sqlcache.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode cache file %q: %w", s.path, err)
	}
	return m, nil
}

// Save replaces the file atomically: the mapping is written to a sibling
// temp file, synced, then renamed over the target.
func (s *Store) Save(_ context.Context, m sqlcache.Mapping) error {
	data, err := sqlcache.EncodeJSON(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace cache file %q: %w", s.path, err)
	}
	return nil
}
