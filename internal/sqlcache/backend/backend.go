// Package backend opens the cache Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache/filestore"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache/objectstore"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache/sqlstore"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache/valkeystore"
	"github.com/sqlscribe/sqlscribe/internal/storage/s3"
)

// Open returns the configured Store and a close function that releases any
// connection it holds. The close function is never nil.
func Open(ctx context.Context, cfg config.Config) (sqlcache.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheBackendFile, "":
		store, err := filestore.New(cfg.Cache.Path)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.CacheBackendS3:
		objects, err := s3.New(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, noop, fmt.Errorf("open object store: %w", err)
		}
		store, err := objectstore.New(objects, cfg.Cache.ObjectKey, cfg.Cache.ObjectFormat)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.CacheBackendPostgres, config.CacheBackendSQLite, config.CacheBackendDuckDB:
		dialect, err := sqlstore.ParseDialect(cfg.Cache.Backend)
		if err != nil {
			return nil, noop, err
		}
		db, err := sqlstore.Open(ctx, sqlstore.DBConfig{
			Dialect:         dialect,
			DSN:             cfg.Cache.DSN,
			MaxOpenConns:    cfg.Cache.MaxOpenConns,
			MaxIdleConns:    cfg.Cache.MaxIdleConns,
			ConnMaxIdleTime: cfg.Cache.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Cache.ConnMaxLifetime,
		})
		if err != nil {
			return nil, noop, err
		}
		store, err := sqlstore.New(ctx, db, dialect, cfg.Cache.Table)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil

	case config.CacheBackendValkey:
		store, err := valkeystore.New(ctx, cfg.Valkey)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}
