package tagger

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"

	"github.com/aretw0/catset/pkg/core"
)

// Cached memoizes successful results of another tagger, keyed by the xxh3
// hash of the normalized code. Failures are not cached.
type Cached struct {
	next  core.Tagger
	cache *lru.Cache[uint64, []string]
}

// NewCached wraps next with an LRU cache of size entries.
func NewCached(next core.Tagger, size int) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[uint64, []string](size)
	if err != nil {
		return nil, fmt.Errorf("init tag cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

var _ core.Tagger = (*Cached)(nil)

func (c *Cached) GenerateTags(ctx context.Context, normalized string) ([]string, error) {
	key := xxh3.HashString(normalized)
	if tags, ok := c.cache.Get(key); ok {
		return clone(tags), nil
	}

	tags, err := c.next.GenerateTags(ctx, normalized)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, clone(tags))
	return tags, nil
}

// Len returns the number of cached results.
func (c *Cached) Len() int { return c.cache.Len() }

func (c *Cached) ComponentType() string {
	if comp, ok := c.next.(interface{ ComponentType() string }); ok {
		return "cached/" + comp.ComponentType()
	}
	return "cached"
}

func clone(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
