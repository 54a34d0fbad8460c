// Package fontcache holds the font data available to text shaping. The
// cache is an explicitly owned resource scoped to the execution engine
// instance and passed by reference into the node evaluations that need it,
// rather than living as ambient per-thread state.
package fontcache

import "sync"

// Cache is a concurrency-safe registry of font data keyed by family name.
type Cache struct {
	mu    sync.RWMutex
	fonts map[string][]byte
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{fonts: make(map[string][]byte)}
}

// Insert adds or replaces a single font.
func (c *Cache) Insert(family string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fonts[family] = data
}

// Merge applies a side-channel delta of font updates. A nil data entry
// removes the font.
func (c *Cache) Merge(delta map[string][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for family, data := range delta {
		if data == nil {
			delete(c.fonts, family)
			continue
		}
		c.fonts[family] = data
	}
}

// Get returns the data for a font family.
func (c *Cache) Get(family string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.fonts[family]
	return data, ok
}

// Has reports whether a font family is loaded.
func (c *Cache) Has(family string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.fonts[family]
	return ok
}

// Len returns the number of loaded fonts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.fonts)
}
