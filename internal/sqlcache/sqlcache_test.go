package sqlcache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestInsertDoesNotMutateInput(t *testing.T) {
	original := Mapping{"a": "SELECT 1"}
	updated := Insert(original, "b", "SELECT 2")

	if len(original) != 1 {
		t.Fatalf("original mutated: %#v", original)
	}
	if got, ok := Lookup(updated, "b"); !ok || got != "SELECT 2" {
		t.Fatalf("Lookup(updated, b) = %q, %v", got, ok)
	}
	if got, ok := Lookup(updated, "a"); !ok || got != "SELECT 1" {
		t.Fatalf("Lookup(updated, a) = %q, %v", got, ok)
	}
}

func TestLookupOnNilMapping(t *testing.T) {
	if _, ok := Lookup(nil, "x"); ok {
		t.Fatal("expected miss on nil mapping")
	}
}

func TestMergeOverlayWins(t *testing.T) {
	merged := Merge(Mapping{"a": "1", "b": "2"}, Mapping{"b": "3", "c": "4"})
	if len(merged) != 3 || merged["b"] != "3" || merged["c"] != "4" {
		t.Fatalf("Merge() = %#v", merged)
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(Mapping{"a": "abc", "b": "de"})
	if stats.Entries != 2 || stats.SQLBytes != 5 {
		t.Fatalf("ComputeStats() = %#v", stats)
	}
}

func TestCacheLoadFailsSoft(t *testing.T) {
	var logs bytes.Buffer
	cache := New(&memoryStore{loadErr: errors.New("corrupt")}, slog.New(slog.NewTextHandler(&logs, nil)))

	m := cache.Load(context.Background())
	if m == nil || len(m) != 0 {
		t.Fatalf("Load() = %#v, want empty mapping", m)
	}
	if !strings.Contains(logs.String(), "cache load failed") {
		t.Fatalf("expected warning log, got %q", logs.String())
	}
}

func TestCacheSaveReportsFailureWithoutPanicking(t *testing.T) {
	cache := New(&memoryStore{saveErr: errors.New("disk full")}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if cache.Save(context.Background(), Mapping{"a": "b"}) {
		t.Fatal("Save() = true, want false")
	}
}

func TestCacheRecordRoundTrip(t *testing.T) {
	store := &memoryStore{}
	cache := New(store, nil)

	cache.Record(context.Background(), "k", "SELECT 1")

	loaded := cache.Load(context.Background())
	if got, ok := Lookup(loaded, "k"); !ok || got != "SELECT 1" {
		t.Fatalf("Lookup after Record = %q, %v", got, ok)
	}
}

func TestCacheRecordReturnsMappingWhenSaveFails(t *testing.T) {
	cache := New(&memoryStore{saveErr: errors.New("read-only")}, nil)
	m := cache.Record(context.Background(), "k", "SELECT 1")
	if m["k"] != "SELECT 1" {
		t.Fatalf("Record() = %#v", m)
	}
}

func TestCacheRecordSerializesConcurrentWriters(t *testing.T) {
	store := &memoryStore{}
	cache := New(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			cache.Record(context.Background(), key, "SELECT "+key)
		}(i)
	}
	wg.Wait()

	if got := len(cache.Load(context.Background())); got != 20 {
		t.Fatalf("entries = %d, want 20", got)
	}
}

func TestCacheRecordKeepsPersistedEntriesWhenReloadFails(t *testing.T) {
	store := &memoryStore{
		data:          Mapping{"a": "SELECT 1;", "b": "SELECT 2;", "c": "SELECT 3;"},
		loadErr:       errors.New("connection reset"),
		failLoadsFrom: 2,
	}
	var logs bytes.Buffer
	cache := New(store, slog.New(slog.NewTextHandler(&logs, nil)))

	if got := len(cache.Load(context.Background())); got != 3 {
		t.Fatalf("first Load() entries = %d, want 3", got)
	}
	m := cache.Record(context.Background(), "d", "SELECT 4;")
	if m["d"] != "SELECT 4;" {
		t.Fatalf("Record() = %#v", m)
	}
	if store.saves != 0 {
		t.Fatalf("saves = %d, want 0 after failed reload", store.saves)
	}
	if len(store.data) != 3 || store.data["a"] != "SELECT 1;" {
		t.Fatalf("persisted mapping = %#v, want the 3 original entries", store.data)
	}
	if !strings.Contains(logs.String(), "cache reload failed") {
		t.Fatalf("expected warning log, got %q", logs.String())
	}
}

func TestCachePingUsesPingerWhenAvailable(t *testing.T) {
	cache := New(&pingStore{err: errors.New("down")}, nil)
	if err := cache.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	if err := New(&memoryStore{}, nil).Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

type memoryStore struct {
	mu      sync.Mutex
	data    Mapping
	loadErr error
	saveErr error
	saves   int
	loads   int
	// failLoadsFrom makes every Load from that call number on return loadErr.
	failLoadsFrom int
}

func (m *memoryStore) Load(_ context.Context) (Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil && m.loads >= m.failLoadsFrom {
		return nil, m.loadErr
	}
	return Merge(nil, m.data), nil
}

func (m *memoryStore) Save(_ context.Context, mapping Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = Merge(nil, mapping)
	return nil
}

type pingStore struct {
	memoryStore
	err error
}

func (p *pingStore) Ping(_ context.Context) error {
	return p.err
}
