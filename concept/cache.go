package concept

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is used when a non-positive cache size is requested.
const DefaultCacheSize = 4096

// cacheEntry records a hit or a definitive miss.
type cacheEntry struct {
	descriptor Descriptor
	found      bool
}

// CachingResolver memoizes lookups, including definitive misses. Transport
// errors are never cached.
type CachingResolver struct {
	next  Resolver
	cache *lru.Cache
}

// NewCachingResolver wraps next with an LRU cache of the given size.
func NewCachingResolver(next Resolver, size int) (*CachingResolver, error) {
	if next == nil {
		return nil, errors.New("resolver is required")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create concept cache: %w", err)
	}
	return &CachingResolver{next: next, cache: cache}, nil
}

// Lookup implements Resolver.
func (c *CachingResolver) Lookup(ctx context.Context, key string) (Descriptor, error) {
	k := NormalizeKey(key)
	if v, ok := c.cache.Get(k); ok {
		entry := v.(cacheEntry)
		if !entry.found {
			return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		return entry.descriptor, nil
	}

	d, err := c.next.Lookup(ctx, key)
	switch {
	case err == nil:
		c.cache.Add(k, cacheEntry{descriptor: d, found: true})
	case errors.Is(err, ErrNotFound):
		c.cache.Add(k, cacheEntry{})
	}
	return d, err
}

// Len returns the number of cached keys.
func (c *CachingResolver) Len() int {
	return c.cache.Len()
}
