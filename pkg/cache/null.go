package cache

import "time"

// NullCache is a no-op cache that never stores anything.
// Useful for testing or when caching should be disabled; with it every
// call goes to the network and there is nothing to fall back on.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always returns a cache miss.
func (c *NullCache) Get(key string) (Entry, bool) {
	return Entry{}, false
}

// GetFresh always returns a cache miss.
func (c *NullCache) GetFresh(key string, maxAge time.Duration) (Entry, bool) {
	return Entry{}, false
}

// Put does nothing.
func (c *NullCache) Put(key string, value []byte) {}

// Delete does nothing.
func (c *NullCache) Delete(key string) {}

// Clear does nothing.
func (c *NullCache) Clear() {}

// Ensure NullCache implements Cache.
var _ Cache = (*NullCache)(nil)
