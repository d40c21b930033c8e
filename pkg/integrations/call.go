package integrations

import (
	"sort"
	"time"
)

// State tells how a [Result] was produced.
type State int

const (
	// CacheHit means a fresh cached payload was returned without a request.
	CacheHit State = iota
	// NetworkSuccess means an attempt succeeded and its payload is returned.
	NetworkSuccess
	// StaleFallback means every attempt failed and an expired cached payload
	// is returned instead.
	StaleFallback
)

// String returns the state name used in logs and JSON output.
func (s State) String() string {
	switch s {
	case CacheHit:
		return "cache_hit"
	case NetworkSuccess:
		return "network_success"
	case StaleFallback:
		return "stale_fallback"
	default:
		return "unknown"
	}
}

// Call describes one logical operation against the backend.
type Call struct {
	Op     string            // operation name, see config.Op*
	Method string            // defaults to GET
	Params map[string]string // path template parameters; also part of the cache key
	Body   any               // encoded as JSON when non-nil

	// Refresh skips the fresh-cache check. A successful result is still
	// written back to the cache.
	Refresh bool

	// NoCache bypasses the cache in both directions. Calls with a body
	// are never cached.
	NoCache bool

	// Check, when set, vets a successful payload before it is returned or
	// cached. A non-nil error turns the attempt into a parse failure.
	Check func(payload []byte) error
}

func (c Call) cacheable() bool {
	return !c.NoCache && c.Body == nil
}

// keyParams returns the parameter values ordered by parameter name.
func (c Call) keyParams() []string {
	if len(c.Params) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Params))
	for name := range c.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, len(names))
	for i, name := range names {
		out[i] = c.Params[name]
	}
	return out
}

// Result is the payload of a successful [Client.Fetch].
type Result struct {
	Payload  []byte
	State    State
	StoredAt time.Time // when Payload was fetched from the backend
	Attempts int       // zero for CacheHit
}

// Stale reports whether the payload is a fallback copy.
func (r Result) Stale() bool { return r.State == StaleFallback }
