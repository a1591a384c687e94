// Package sqlcache holds the flat mapping from normalized questions to
// generated SQL and the fail-soft wrapper the request path uses around a
// persistent Store.
package sqlcache

import (
	"context"
	"maps"
)

// Mapping is the whole cache: normalized question -> generated SQL.
type Mapping map[string]string

// Store persists a Mapping wholesale. Load returns an empty mapping and a nil
// error when nothing has been persisted yet.
type Store interface {
	Load(ctx context.Context) (Mapping, error)
	Save(ctx context.Context, m Mapping) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Stats struct {
	Entries  int   `json:"entries"`
	SQLBytes int64 `json:"sql_bytes"`
}

func Lookup(m Mapping, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	value, ok := m[key]
	return value, ok
}

// Insert returns a copy of m with key set to value. m is left untouched.
func Insert(m Mapping, key, value string) Mapping {
	out := make(Mapping, len(m)+1)
	maps.Copy(out, m)
	out[key] = value
	return out
}

// Merge returns a copy of base overlaid with every entry of overlay.
func Merge(base, overlay Mapping) Mapping {
	out := make(Mapping, len(base)+len(overlay))
	maps.Copy(out, base)
	maps.Copy(out, overlay)
	return out
}

func ComputeStats(m Mapping) Stats {
	stats := Stats{Entries: len(m)}
	for _, value := range m {
		stats.SQLBytes += int64(len(value))
	}
	return stats
}
