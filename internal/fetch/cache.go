package fetch

import (
	"context"
	"sync"
)

// Cache holds successful responses for the lifetime of one pipeline run.
// Adapters that reach the same URL (index pages shared between sources) only
// hit the origin once. Nothing outlives the run.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Response
	hits    int
	misses  int
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Response)}
}

// Wrap returns a Fetcher that answers from the cache before calling next.
// Cache hits bypass next entirely, including any throttle inside it.
func (c *Cache) Wrap(next Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context, url string) (*Response, error) {
		c.mu.Lock()
		if r, ok := c.entries[url]; ok {
			c.hits++
			c.mu.Unlock()
			return r, nil
		}
		c.misses++
		c.mu.Unlock()

		r, err := next.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		if r.OK() {
			c.mu.Lock()
			c.entries[url] = r
			c.mu.Unlock()
		}
		return r, nil
	})
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len is the number of cached responses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
