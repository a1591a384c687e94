package sqlscribectl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
)

func TestCacheStats(t *testing.T) {
	store := &memoryStore{data: sqlcache.Mapping{"a": "SELECT 1;", "b": "SELECT 22;"}}
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"cache", "stats"}, Options{Stdout: &stdout, OpenStore: store.open})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "Entries:   2") || !strings.Contains(stdout.String(), "SQL bytes: 19") {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !store.closed {
		t.Fatal("store was not closed")
	}
}

func TestCacheExportImportRoundTrip(t *testing.T) {
	for _, format := range []string{sqlcache.FormatJSON, sqlcache.FormatParquet} {
		t.Run(format, func(t *testing.T) {
			source := &memoryStore{data: sqlcache.Mapping{"show all users": "SELECT * FROM users;"}}
			path := filepath.Join(t.TempDir(), "export."+format)

			code := Run(context.Background(), []string{"cache", "export", "--format", format, "--out", path}, Options{OpenStore: source.open})
			if code != 0 {
				t.Fatalf("export exit code = %d", code)
			}
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("export file: %v", err)
			}

			target := &memoryStore{data: sqlcache.Mapping{"count orders": "SELECT COUNT(*) FROM orders;"}}
			var stdout bytes.Buffer
			code = Run(context.Background(), []string{"cache", "import", "--in", path}, Options{Stdout: &stdout, OpenStore: target.open})
			if code != 0 {
				t.Fatalf("import exit code = %d", code)
			}
			if len(target.data) != 2 || target.data["show all users"] != "SELECT * FROM users;" {
				t.Fatalf("target = %v", target.data)
			}
			if !strings.Contains(stdout.String(), "Imported 1 entries (2 total)") {
				t.Fatalf("stdout = %q", stdout.String())
			}
		})
	}
}

func TestCacheImportNormalizesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	payload := `{"  Show Users ": "SELECT * FROM users;", "count orders": "SELECT COUNT(*) FROM orders;"}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	target := &memoryStore{data: sqlcache.Mapping{}}
	if code := Run(context.Background(), []string{"cache", "import", "--in", path}, Options{OpenStore: target.open}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got, ok := target.data["show users"]; !ok || got != "SELECT * FROM users;" {
		t.Fatalf("target = %v", target.data)
	}
	if _, ok := target.data["  Show Users "]; ok {
		t.Fatalf("raw key kept: %v", target.data)
	}
	if len(target.data) != 2 {
		t.Fatalf("entries = %d, want 2", len(target.data))
	}
}

func TestCacheExportToStdout(t *testing.T) {
	store := &memoryStore{data: sqlcache.Mapping{"q": "SELECT 1;"}}
	var stdout bytes.Buffer
	if code := Run(context.Background(), []string{"cache", "export"}, Options{Stdout: &stdout, OpenStore: store.open}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), `"q": "SELECT 1;"`) {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestCacheCommandsReportBackendErrors(t *testing.T) {
	failing := func(context.Context) (sqlcache.Store, func() error, error) {
		return nil, nil, errors.New("dial tcp: connection refused")
	}
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"cache", "stats"}, Options{Stderr: &stderr, OpenStore: failing})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "connection refused") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestDetectFormat(t *testing.T) {
	if got := detectFormat("", "cache.PARQUET"); got != sqlcache.FormatParquet {
		t.Fatalf("detectFormat() = %q", got)
	}
	if got := detectFormat("", "cache.json"); got != sqlcache.FormatJSON {
		t.Fatalf("detectFormat() = %q", got)
	}
	if got := detectFormat("Parquet", "cache.json"); got != sqlcache.FormatParquet {
		t.Fatalf("detectFormat() = %q", got)
	}
}

type memoryStore struct {
	data   sqlcache.Mapping
	closed bool
}

func (s *memoryStore) open(context.Context) (sqlcache.Store, func() error, error) {
	return s, func() error { s.closed = true; return nil }, nil
}

func (s *memoryStore) Load(context.Context) (sqlcache.Mapping, error) {
	return sqlcache.Merge(nil, s.data), nil
}

func (s *memoryStore) Save(_ context.Context, m sqlcache.Mapping) error {
	s.data = sqlcache.Merge(nil, m)
	return nil
}
