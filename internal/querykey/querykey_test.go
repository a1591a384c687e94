package querykey

import (
	"strings"
	"testing"
)

func TestNormalizeTrimsAndLowercases(t *testing.T) {
	got := Normalize("  Show me all users who placed an order in the last 30 days  ")
	want := "show me all users who placed an order in the last 30 days"
	if got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeCollapsesCaseAndPaddingVariants(t *testing.T) {
	base := "Top 5 products by revenue"
	variants := []string{
		base,
		strings.ToUpper(base),
		"\t" + base + "\n",
		"   " + strings.ToLower(base) + "   ",
	}
	want := Normalize(base)
	for _, variant := range variants {
		if got := Normalize(variant); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", variant, got, want)
		}
	}
}

func TestNormalizeKeepsInteriorWhitespaceAndPhrasing(t *testing.T) {
	if Normalize("count  orders") == Normalize("count orders") {
		t.Fatal("interior whitespace should be preserved")
	}
	if Normalize("how many orders") == Normalize("number of orders") {
		t.Fatal("different phrasing should yield different keys")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	once := Normalize("  MiXeD Case  ")
	if Normalize(once) != once {
		t.Fatalf("Normalize is not idempotent for %q", once)
	}
}
