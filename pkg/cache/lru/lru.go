// Package lru implements a cache.Cache keeping responses in a size bounded
// in-process LRU
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/Luzifer/filegate/pkg/cache"
)

const defaultMaxEntries = 1024

// Cache implements the cache.Cache interface
type Cache struct {
	entries      *lru.Cache[string, *cache.Response]
	maxEntrySize int
}

// New creates a cache holding up to maxEntries responses. Responses with
// a body larger than maxEntrySize bytes are not stored (0 = no limit).
func New(maxEntries, maxEntrySize int) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	entries, err := lru.New[string, *cache.Response](maxEntries)
	if err != nil {
		return nil, errors.Wrap(err, "create LRU")
	}

	return &Cache{entries: entries, maxEntrySize: maxEntrySize}, nil
}

// Match implements the cache.Cache Match method
func (c *Cache) Match(_ context.Context, key string) (*cache.Response, error) {
	resp, ok := c.entries.Get(key)
	if !ok {
		return nil, cache.ErrMiss
	}

	return resp.Clone(), nil
}

// Put implements the cache.Cache Put method
func (c *Cache) Put(_ context.Context, key string, resp *cache.Response) error {
	if !c.Accepts(int64(len(resp.Body))) {
		return nil
	}

	c.entries.Add(key, resp.Clone())
	return nil
}

// Accepts implements the cache.Admitter interface
func (c *Cache) Accepts(size int64) bool {
	return c.maxEntrySize <= 0 || size <= int64(c.maxEntrySize)
}

// Len returns the number of cached responses
func (c *Cache) Len() int { return c.entries.Len() }
