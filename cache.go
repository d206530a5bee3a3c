package taskstream

import (
	"encoding/json"
	"sync"
	"time"
)

// ResponseCache stores successful GET payloads keyed by
// method::endpoint::json(params)::json(body). Entries expire after the
// configured TTL; a TTL of 0 keeps them until an explicit Clear.
//
// Two concurrent identical GETs may both miss and both populate the cache;
// last write wins. The cache does not coalesce in-flight requests.
type ResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewResponseCache creates an empty cache with the given TTL.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// CacheKey builds the canonical key for a request. Params and body are
// JSON-serialized so any distinct parameter combination gets its own entry.
func CacheKey(method, endpoint string, params map[string]string, body []byte) string {
	p, _ := json.Marshal(params)
	b := "null"
	if len(body) > 0 {
		b = string(body) // already JSON
	}
	return method + "::" + endpoint + "::" + string(p) + "::" + b
}

// Get returns the cached payload for key, expiring stale entries lazily.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// Set stores a payload under key.
func (c *ResponseCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := cacheEntry{data: data}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.entries[key] = e
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, including not-yet-expired ones.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
