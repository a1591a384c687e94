// Package schema supplies the database description sent to the model with
// every question.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed ecommerce.sql
var ecommerce string

// Default is the built-in e-commerce schema: users, products, orders and
// order_items.
func Default() string {
	return ecommerce
}

// Load returns the schema context from path, or Default when path is empty.
func Load(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read schema file %q: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("schema file %q is empty", path)
	}
	return string(data), nil
}
