// Package objectstore keeps the cache mapping as a single object in an
// S3-compatible bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
	"github.com/sqlscribe/sqlscribe/internal/storage"
)

type Store struct {
	objects storage.ObjectStore
	key     string
	format  string
}

func New(objects storage.ObjectStore, key, format string) (*Store, error) {
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	key = strings.TrimSpace(key)
	if _, err := storage.CleanKey(key); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = sqlcache.FormatJSON
	}
	if format != sqlcache.FormatJSON && format != sqlcache.FormatParquet {
		return nil, fmt.Errorf("unsupported cache object format %q", format)
	}
	return &Store{objects: objects, key: key, format: format}, nil
}

func (s *Store) Load(ctx context.Context) (sqlcache.Mapping, error) {
	body, err := s.objects.GetObject(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return sqlcache.Mapping{}, nil
		}
		return nil, fmt.Errorf("load cache object: %w", err)
	}
	m, err := sqlcache.Decode(s.format, body)
	if err != nil {
		return nil, fmt.Errorf("decode cache object %q: %w", s.key, err)
	}
	return m, nil
}

func (s *Store) Save(ctx context.Context, m sqlcache.Mapping) error {
	body, err := sqlcache.Encode(s.format, m)
	if err != nil {
		return err
	}
	if _, err := s.objects.PutObject(ctx, s.key, body, contentType(s.format)); err != nil {
		return fmt.Errorf("save cache object: %w", err)
	}
	return nil
}

// Ping checks the bucket and, if the cache object exists yet, that it can be
// stat'ed.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.objects.Ping(ctx); err != nil {
		return err
	}
	if _, err := s.objects.Stat(ctx, s.key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("stat cache object %q: %w", s.key, err)
	}
	return nil
}

func contentType(format string) string {
	if format == sqlcache.FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "application/json"
}
