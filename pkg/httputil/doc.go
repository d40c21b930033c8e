// Package httputil provides the request layer used by the footpredict client.
//
// # Overview
//
// The package is split along the two concerns of a resilient call:
//
//   - [Executor]: performs exactly one HTTP attempt with its own timeout
//   - [Policy]: decides whether to try again and how long to wait first
//
// Neither caches anything; caching and fallback belong to the caller.
//
// # Attempts
//
// [Executor.Execute] never returns an error. Every attempt ends in an
// [Outcome] whose [Kind] is one of Success, NetworkFailure, Timeout,
// HTTPError, or ParseFailure. Each attempt runs under a context derived with
// the configured timeout, and the derived context is always cancelled when
// the attempt returns, so an abandoned request is torn down by the transport
// rather than left running.
//
// # Retry
//
// [Policy] retries every failed outcome up to MaxAttempts with a delay that
// never shrinks:
//
//   - linear: attempt × BaseDelay (1s, 2s, 3s, ...)
//   - exponential: BaseDelay × 2^(attempt-1) (1s, 2s, 4s, ...)
//
// Client errors (4xx) are final except 408 Request Timeout and 429 Too Many
// Requests, unless RetryClientErrors is set.
//
//	policy := httputil.PolicyFromConfig(cfg)
//	out, attempts, err := policy.Do(ctx, func(n int) httputil.Outcome {
//	    return exec.Execute(ctx, req)
//	}, nil)
//
// # Circuit breaking
//
// An optional [Breaker] wraps the executor so that a backend that keeps
// failing is not hammered by every caller's retries. While open, attempts
// fail immediately with a CIRCUIT_OPEN network failure.
package httputil
