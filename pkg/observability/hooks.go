// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. A client receives a [Hooks] value at
// construction and reports cache, HTTP, and resilience events to it.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Inject an implementation into each client that should report
//
// Hooks are passed explicitly rather than registered globally, so two clients
// in one process (or two tests) never share instrumentation state.
//
// # Usage
//
//	hooks := metrics.NewHooks(prometheus.DefaultRegisterer)
//	client, err := integrations.NewClient(cfg, integrations.WithHooks(hooks))
//
// Embed [Noop] to implement only the events you care about:
//
//	type retryCounter struct {
//	    observability.Noop
//	    n atomic.Int64
//	}
//
//	func (r *retryCounter) OnRetry(context.Context, string, int, time.Duration) { r.n.Add(1) }
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache lookups made by the client.
type CacheHooks interface {
	// OnCacheHit records a fresh cache hit for op.
	OnCacheHit(ctx context.Context, op string)

	// OnCacheMiss records a lookup for op that found no fresh entry.
	OnCacheMiss(ctx context.Context, op string)

	// OnCacheSet records a cache write of size bytes.
	OnCacheSet(ctx context.Context, op string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from individual request attempts.
type HTTPHooks interface {
	// OnRequest records an outgoing attempt.
	OnRequest(ctx context.Context, op, method, path string)

	// OnResponse records a completed response, successful or not.
	OnResponse(ctx context.Context, op string, statusCode int, duration time.Duration)

	// OnError records an attempt that produced no usable response.
	// outcome is the attempt outcome name (timeout, network, parse).
	OnError(ctx context.Context, op, outcome string, err error)
}

// =============================================================================
// Resilience Hooks
// =============================================================================

// ResilienceHooks receives events from the retry and fallback logic.
type ResilienceHooks interface {
	// OnRetry records that attempt failed and the next one starts after delay.
	OnRetry(ctx context.Context, op string, attempt int, delay time.Duration)

	// OnStaleFallback records that a stale entry of the given age was served.
	OnStaleFallback(ctx context.Context, op string, age time.Duration)

	// OnExhausted records a terminal failure after attempts tries.
	OnExhausted(ctx context.Context, op string, attempts int)

	// OnFallback records that a locally synthesized placeholder was returned.
	OnFallback(ctx context.Context, op string)
}

// Hooks is the full set of events a client reports.
type Hooks interface {
	CacheHooks
	HTTPHooks
	ResilienceHooks
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)         {}

// NoopResilienceHooks is a no-op implementation of ResilienceHooks.
type NoopResilienceHooks struct{}

func (NoopResilienceHooks) OnRetry(context.Context, string, int, time.Duration)    {}
func (NoopResilienceHooks) OnStaleFallback(context.Context, string, time.Duration) {}
func (NoopResilienceHooks) OnExhausted(context.Context, string, int)               {}
func (NoopResilienceHooks) OnFallback(context.Context, string)                     {}

// Noop implements Hooks and ignores every event.
type Noop struct {
	NoopCacheHooks
	NoopHTTPHooks
	NoopResilienceHooks
}

// Ensure Noop implements Hooks.
var _ Hooks = Noop{}

// OrNoop returns h, or Noop when h is nil.
func OrNoop(h Hooks) Hooks {
	if h == nil {
		return Noop{}
	}
	return h
}
