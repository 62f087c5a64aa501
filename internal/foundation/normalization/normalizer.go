// Package normalization maps loosely spelled names from the command line and
// config files onto typed enums such as platforms and configurations.
package normalization

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Normalizer resolves case-insensitive spellings to values of T.
type Normalizer[T comparable] struct {
	byKey    map[string]T
	fallback T
}

// NewNormalizer indexes the accepted spellings. Several spellings may map to
// the same value; fallback is what Normalize returns for anything else.
func NewNormalizer[T comparable](values map[string]T, fallback T) *Normalizer[T] {
	byKey := make(map[string]T, len(values))
	for k, v := range values {
		byKey[fold(k)] = v
	}
	return &Normalizer[T]{byKey: byKey, fallback: fallback}
}

// Normalize returns the value for raw, or the fallback.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.Lookup(raw); ok {
		return v
	}
	return n.fallback
}

// Lookup returns the value for raw and whether it was recognized.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	v, ok := n.byKey[fold(raw)]
	return v, ok
}

// Parse is Lookup with an error naming the accepted spellings.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	if v, ok := n.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unrecognized %q, expected one of: %s", raw, strings.Join(n.ValidKeys(), ", "))
}

// ValidKeys returns the accepted spellings in their folded form, sorted.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Sorted(maps.Keys(n.byKey))
}

// fold uses Unicode case folding; a Caser is not safe to share, so each call
// builds its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
