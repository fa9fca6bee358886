package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache evicts the least recently used entry once size is reached.
type LRUCache struct {
	inner *lru.Cache[string, Entry]
	now   func() time.Time
}

func NewLRUCache(size int) (*LRUCache, error) {
	inner, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("new lru cache: %w", err)
	}
	return &LRUCache{inner: inner, now: time.Now}, nil
}

func (c *LRUCache) Get(fp string) (Entry, bool) {
	return c.inner.Get(fp)
}

func (c *LRUCache) Put(e Entry) {
	if e.StoredAt.IsZero() {
		e.StoredAt = c.now()
	}
	c.inner.Add(e.Fingerprint, e)
}

func (c *LRUCache) Clear() { c.inner.Purge() }

func (c *LRUCache) Len() int { return c.inner.Len() }

// Recent orders by recency of use, which includes Get hits.
func (c *LRUCache) Recent(n int) []Entry {
	keys := c.inner.Keys()
	if n <= 0 || n > len(keys) {
		n = len(keys)
	}
	out := make([]Entry, 0, n)
	for i := len(keys) - 1; i >= 0 && len(out) < n; i-- {
		if e, ok := c.inner.Peek(keys[i]); ok {
			out = append(out, e)
		}
	}
	return out
}
