package cache

import (
	"sync"
	"time"

	"dataagent/internal/envelope"
)

// Entry is one stored result.
type Entry struct {
	Fingerprint string            `json:"fingerprint"`
	Question    string            `json:"question"`
	Envelope    envelope.Envelope `json:"envelope"`
	StoredAt    time.Time         `json:"stored_at"`
}

// Cache stores successful envelopes by fingerprint. Implementations are safe
// for concurrent use.
type Cache interface {
	Get(fp string) (Entry, bool)
	Put(e Entry)
	Clear()
	Len() int
	// Recent returns up to n entries, most recently stored first.
	Recent(n int) []Entry
}

// New returns a MapCache when size is zero or negative, otherwise an LRUCache
// holding at most size entries.
func New(size int) (Cache, error) {
	if size <= 0 {
		return NewMapCache(), nil
	}
	return NewLRUCache(size)
}

// MapCache is unbounded and keeps insertion order.
type MapCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
	now     func() time.Time
}

func NewMapCache() *MapCache {
	return &MapCache{entries: map[string]Entry{}, now: time.Now}
}

func (c *MapCache) Get(fp string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fp]
	return e, ok
}

func (c *MapCache) Put(e Entry) {
	if e.StoredAt.IsZero() {
		e.StoredAt = c.now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[e.Fingerprint]; ok {
		c.removeFromOrder(e.Fingerprint)
	}
	c.entries[e.Fingerprint] = e
	c.order = append(c.order, e.Fingerprint)
}

func (c *MapCache) removeFromOrder(fp string) {
	for i, k := range c.order {
		if k == fp {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *MapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]Entry{}
	c.order = nil
}

func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MapCache) Recent(n int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || n > len(c.order) {
		n = len(c.order)
	}
	out := make([]Entry, 0, n)
	for i := len(c.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, c.entries[c.order[i]])
	}
	return out
}
