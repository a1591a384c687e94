package sqlcache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sqlscribe/sqlscribe/internal/observability"
)

// Cache wraps a Store so that persistence faults never reach the caller.
// A failed load degrades to an empty mapping and a failed save is logged;
// both are counted as persistence failures.
type Cache struct {
	store  Store
	logger *slog.Logger
	mu     sync.Mutex
}

func New(store Store, logger *slog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

func (c *Cache) Load(ctx context.Context) Mapping {
	if c == nil || c.store == nil {
		return Mapping{}
	}
	m, err := c.store.Load(ctx)
	if err != nil {
		observability.IncrementCachePersistenceFailure("load")
		c.warn(ctx, "cache load failed; continuing with empty cache", err)
		return Mapping{}
	}
	if m == nil {
		return Mapping{}
	}
	return m
}

// Save persists m and reports whether it succeeded.
func (c *Cache) Save(ctx context.Context, m Mapping) bool {
	if c == nil || c.store == nil {
		return false
	}
	if err := c.store.Save(ctx, m); err != nil {
		observability.IncrementCachePersistenceFailure("save")
		c.warn(ctx, "cache save failed; result not persisted", err, slog.Int("entries", len(m)))
		return false
	}
	return true
}

// Record stores key -> sql. The latest persisted mapping is re-read under a
// process-wide lock before the write, so concurrent requests in this process
// cannot drop each other's entries. Writers in other processes still race on
// the whole mapping. When the re-read fails nothing is written: saving the
// single new entry would replace everything already persisted.
func (c *Cache) Record(ctx context.Context, key, sql string) Mapping {
	if c == nil || c.store == nil {
		return Mapping{key: sql}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.store.Load(ctx)
	if err != nil {
		observability.IncrementCachePersistenceFailure("load")
		c.warn(ctx, "cache reload failed; result not persisted", err, slog.String("cache_key", key))
		return Mapping{key: sql}
	}
	updated := Insert(current, key, sql)
	c.Save(ctx, updated)
	return updated
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.store == nil {
		return nil
	}
	pinger, ok := c.store.(Pinger)
	if !ok {
		return nil
	}
	return pinger.Ping(ctx)
}

func (c *Cache) warn(ctx context.Context, msg string, err error, attrs ...any) {
	if c.logger == nil {
		return
	}
	args := append([]any{
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.Any("error", err),
	}, attrs...)
	c.logger.WarnContext(ctx, msg, args...)
}
