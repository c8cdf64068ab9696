package salt

import (
	"log/slog"
	"sync"
)

// Pair is the resolved secret material for one scheme.
type Pair struct {
	Key  string
	Salt string
}

// Combined returns Key followed by Salt, the value handed to the keyed hasher.
func (p Pair) Combined() string { return p.Key + p.Salt }

// LogValue keeps secret material out of structured logs.
func (p Pair) LogValue() slog.Value { return slog.StringValue("[redacted]") }

// Cache memoises resolved pairs per scheme.
//
// Its lifetime is whatever the owner decides: share one Cache across every
// [Manager] in a process for process-wide stability, or create one per
// request when salts may be regenerated underneath.  A Cache is safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Pair
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Pair)}
}

// Get returns the cached pair for scheme.
func (c *Cache) Get(scheme string) (Pair, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[scheme]
	return p, ok
}

// Put stores p under scheme.
func (c *Cache) Put(scheme string, p Pair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scheme] = p
}

// Invalidate drops scheme so the next lookup resolves it again.
func (c *Cache) Invalidate(scheme string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scheme)
}

// Reset drops every cached scheme.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len reports the number of cached schemes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
