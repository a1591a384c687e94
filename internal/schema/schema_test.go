package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDescribesECommerceTables(t *testing.T) {
	s := Default()
	for _, table := range []string{"CREATE TABLE users", "CREATE TABLE products", "CREATE TABLE orders", "CREATE TABLE order_items"} {
		if !strings.Contains(s, table) {
			t.Fatalf("default schema missing %q", table)
		}
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	s, err := Load("  ")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s != Default() {
		t.Fatal("expected default schema")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE invoices (id INT);\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s != "CREATE TABLE invoices (id INT);\n" {
		t.Fatalf("Load() = %q", s)
	}
}

func TestLoadRejectsMissingOrEmptyFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.sql")); err == nil {
		t.Fatal("expected missing file error")
	}
	path := filepath.Join(t.TempDir(), "empty.sql")
	if err := os.WriteFile(path, []byte("\n \n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected empty file error")
	}
}
