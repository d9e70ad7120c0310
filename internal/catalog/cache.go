package catalog

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 256

// Cached keeps recently fetched products in memory. Only Get is cached;
// listings always go to the underlying repository.
type Cached struct {
	Repository
	cache *lru.Cache[int64, Product]
}

func NewCached(repo Repository, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[int64, Product](size)
	if err != nil {
		return nil, err
	}
	return &Cached{Repository: repo, cache: c}, nil
}

func (c *Cached) Get(ctx context.Context, id int64) (Product, error) {
	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}
	p, err := c.Repository.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	c.cache.Add(id, p)
	return p, nil
}

// Forget drops id so the next Get reads through.
func (c *Cached) Forget(id int64) { c.cache.Remove(id) }

func (c *Cached) Len() int { return c.cache.Len() }
