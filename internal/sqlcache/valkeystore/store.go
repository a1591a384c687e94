// Package valkeystore keeps the cache mapping in a single Valkey hash.
package valkeystore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/sqlscribe/sqlscribe/internal/config"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
)

const (
	hashSuffix     = "query_cache"
	connectTimeout = 5 * time.Second
)

type client interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	client client
	key    string
}

// New connects to Valkey and verifies the connection with a PING.
func New(ctx context.Context, cfg config.ValkeyConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, fmt.Errorf("valkey address is required")
	}
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	c := &valkeyClient{inner: inner}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		c.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return NewWithClient(cfg.KeyPrefix, c), nil
}

func NewWithClient(prefix string, c client) *Store {
	return &Store{client: c, key: HashKey(prefix)}
}

// HashKey returns the hash holding the mapping, "<prefix>:query_cache".
func HashKey(prefix string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return hashSuffix
	}
	return prefix + ":" + hashSuffix
}

func (s *Store) Load(ctx context.Context) (sqlcache.Mapping, error) {
	entries, err := s.client.HGetAll(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %q: %w", s.key, err)
	}
	m := make(sqlcache.Mapping, len(entries))
	for key, value := range entries {
		m[key] = value
	}
	return m, nil
}

func (s *Store) Save(ctx context.Context, m sqlcache.Mapping) error {
	if len(m) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.key, m); err != nil {
		return fmt.Errorf("hset %q: %w", s.key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}

type valkeyClient struct {
	inner valkeylib.Client
}

func (c *valkeyClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := c.inner.B().Hgetall().Key(key).Build()
	return c.inner.Do(ctx, cmd).AsStrMap()
}

func (c *valkeyClient) HSet(ctx context.Context, key string, fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	builder := c.inner.B().Hset().Key(key).FieldValue()
	for _, name := range names {
		builder = builder.FieldValue(name, fields[name])
	}
	return c.inner.Do(ctx, builder.Build()).Error()
}

func (c *valkeyClient) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

func (c *valkeyClient) Close() {
	c.inner.Close()
}
