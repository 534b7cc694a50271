// Package categorical provides the string interning cache shared by
// categorical builders.
package categorical

import "sync"

// StringCache maps strings to stable uint32 codes and back. Codes are
// assigned in first-seen order and are never evicted while the cache lives.
// Builders that must agree on codes share one cache; independent builders
// use independent caches.
type StringCache struct {
	mu    sync.RWMutex
	codes map[string]uint32
	strs  []string
}

// NewStringCache creates an empty cache.
func NewStringCache() *StringCache {
	return &StringCache{
		codes: make(map[string]uint32),
	}
}

// Encode returns the code for s, interning it on first use.
func (c *StringCache) Encode(s string) uint32 {
	c.mu.RLock()
	code, ok := c.codes[s]
	c.mu.RUnlock()
	if ok {
		return code
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another writer may have interned s between the two locks.
	if code, ok := c.codes[s]; ok {
		return code
	}
	code = uint32(len(c.strs))
	c.codes[s] = code
	c.strs = append(c.strs, s)
	return code
}

// Decode returns the string interned under code.
func (c *StringCache) Decode(code uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(code) >= len(c.strs) {
		return "", false
	}
	return c.strs[code], true
}

// Len returns the number of interned strings.
func (c *StringCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.strs)
}

// Reset drops every interned string. Columns built against the cache before
// a Reset can no longer be decoded.
func (c *StringCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = make(map[string]uint32)
	c.strs = nil
}
