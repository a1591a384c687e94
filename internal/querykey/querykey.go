// Package querykey derives cache keys from raw natural-language questions.
package querykey

import "strings"

// Normalize trims surrounding whitespace and lowercases the question.
// Questions that differ only by case or surrounding whitespace share a key;
// different phrasings of the same question do not.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
