// Package concept defines the contract for resolving terminology concepts and
// provides catalog, HTTP and caching implementations of it.
package concept

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a concept key does not resolve.
var ErrNotFound = errors.New("concept not found")

// Descriptor is the canonical description of a terminology concept.
type Descriptor struct {
	// Tag is the stable concept identifier, normally a UUID.
	Tag string `json:"tag" yaml:"tag"`
	// URI is the canonical concept URI.
	URI string `json:"uri" yaml:"uri"`
	// Label is the preferred human-readable label.
	Label string `json:"label,omitempty" yaml:"label"`
	// Scheme names the vocabulary the concept belongs to.
	Scheme string `json:"scheme,omitempty" yaml:"scheme"`
}

// Resolver looks up concepts by UUID, tag or URI.
type Resolver interface {
	Lookup(ctx context.Context, key string) (Descriptor, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, key string) (Descriptor, error)

// Lookup calls f.
func (f ResolverFunc) Lookup(ctx context.Context, key string) (Descriptor, error) {
	return f(ctx, key)
}

// NormalizeKey canonicalizes a lookup key: surrounding space and leading
// underscores are removed and UUIDs are rendered in lowercase canonical form.
func NormalizeKey(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "_")
	if id, err := uuid.Parse(key); err == nil {
		return id.String()
	}
	return key
}

// Chain tries each resolver in order and returns the first hit. A miss
// moves on to the next resolver; any other error stops the chain.
type Chain []Resolver

// Lookup implements Resolver.
func (c Chain) Lookup(ctx context.Context, key string) (Descriptor, error) {
	for _, r := range c {
		d, err := r.Lookup(ctx, key)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Descriptor{}, err
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}
