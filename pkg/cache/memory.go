package cache

import (
	"sync"
	"time"
)

// Memory is an in-memory [Cache]. The zero value is not usable; create one
// with [NewMemory].
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries bounds the cache to n entries. Storing a new key in a full
// cache evicts the oldest entry. Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) { m.maxEntries = n }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty Memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the entry for key regardless of its age.
func (m *Memory) Get(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

// GetFresh returns the entry for key if its age is at most maxAge.
func (m *Memory) GetFresh(key string, maxAge time.Duration) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || e.Age(m.now()) > maxAge {
		return Entry{}, false
	}
	return e, true
}

// Put stores value under key with the current time.
func (m *Memory) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}
	m.entries[key] = Entry{Value: value, StoredAt: m.now()}
}

// Delete removes the entry for key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep removes entries older than maxAge and returns how many were
// removed. Long-running callers use it to keep stale entries from piling
// up; note that swept entries are no longer available for stale fallback.
func (m *Memory) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if e.Age(now) > maxAge {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldest drops the entry with the earliest StoredAt. Callers hold mu.
func (m *Memory) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, e := range m.entries {
		if !found || e.StoredAt.Before(oldest) {
			oldestKey, oldest, found = key, e.StoredAt, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}

// Ensure Memory implements Cache.
var _ Cache = (*Memory)(nil)
