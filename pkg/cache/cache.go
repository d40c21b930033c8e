// Package cache provides the in-process resource cache used by the
// footpredict client.
//
// Entries map a logical resource identity (see [Keyer]) to the raw response
// payload and the time it was stored. Freshness is decided by the reader:
// [Cache.GetFresh] answers "is there an entry no older than maxAge", while
// [Cache.Get] returns an entry of any age for stale fallback.
//
// Two implementations are provided:
//   - [Memory]: a mutex-guarded map, optionally bounded by entry count
//   - [NullCache]: stores nothing, for running with caching disabled
package cache

import "time"

// Cache is a keyed store of raw payloads with storage timestamps.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the entry for key regardless of its age.
	Get(key string) (Entry, bool)

	// GetFresh returns the entry for key only if its age is at most maxAge.
	// Value and StoredAt come from the same stored entry.
	GetFresh(key string, maxAge time.Duration) (Entry, bool)

	// Put stores value under key, replacing any previous entry and
	// stamping it with the current time.
	Put(key string, value []byte)

	// Delete removes the entry for key, if any.
	Delete(key string)

	// Clear removes all entries.
	Clear()
}

// Entry is a cached value and the time it was stored.
type Entry struct {
	Value    []byte
	StoredAt time.Time
}

// Age returns how old the entry is at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}
