// Package normalization parses the free-form enum values found in launcher
// configuration (log level, log format) into typed constants.
package normalization

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Normalizer maps case-insensitive names, plus optional aliases, to values of T.
type Normalizer[T comparable] struct {
	byName   map[string]T
	names    []string // canonical names only, sorted
	fallback T
}

// NewNormalizer builds a Normalizer over the canonical names in values.
// fallback is returned for empty input and, by Normalize, for unknown input.
func NewNormalizer[T comparable](values map[string]T, fallback T) *Normalizer[T] {
	byName := make(map[string]T, len(values))
	for name, v := range values {
		byName[key(name)] = v
	}
	return &Normalizer[T]{
		byName:   byName,
		names:    slices.Sorted(maps.Keys(byName)),
		fallback: fallback,
	}
}

// WithAlias accepts alias as another spelling of target. Aliases are not listed by ValidKeys.
func (n *Normalizer[T]) WithAlias(alias string, target T) *Normalizer[T] {
	n.byName[key(alias)] = target
	return n
}

// Normalize is lenient: unknown input yields the fallback.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.byName[key(raw)]; ok {
		return v
	}
	return n.fallback
}

// Parse is strict: unknown, non-empty input is an error naming the valid choices.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	k := key(raw)
	if k == "" {
		return n.fallback, nil
	}
	if v, ok := n.byName[k]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unknown value %q (want one of %s)", raw, strings.Join(n.names, "|"))
}

// ValidKeys lists the canonical names in sorted order.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Clone(n.names)
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
