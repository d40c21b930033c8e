package httputil

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/matzehuels/footpredict/pkg/config"
)

// Policy decides whether a failed attempt is retried and how long to wait
// before the next one.
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	Backoff           config.Backoff
	MaxDelay          time.Duration // zero means unbounded
	RetryClientErrors bool
}

// PolicyFromConfig builds the Policy described by cfg.
func PolicyFromConfig(cfg config.Config) Policy {
	return Policy{
		MaxAttempts:       cfg.MaxAttempts,
		BaseDelay:         cfg.BaseDelay,
		Backoff:           cfg.Backoff,
		MaxDelay:          cfg.MaxDelay,
		RetryClientErrors: cfg.RetryClientErrors,
	}
}

// ShouldRetry reports whether another attempt should follow attempt
// (1-based) given its outcome.
func (p Policy) ShouldRetry(attempt int, out Outcome) bool {
	if out.OK() || attempt >= max(p.MaxAttempts, 1) {
		return false
	}
	if out.Kind == HTTPError && !p.RetryClientErrors && isFinalClientError(out.Status) {
		return false
	}
	return true
}

// DelayBefore returns the wait after failed attempt n, before attempt n+1.
// The sequence is non-decreasing in n.
func (p Policy) DelayBefore(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}

	var d time.Duration
	switch p.Backoff {
	case config.BackoffExponential:
		shift := min(attempt-1, 62)
		if p.BaseDelay > math.MaxInt64>>shift {
			d = math.MaxInt64
		} else {
			d = p.BaseDelay << shift
		}
	default:
		d = time.Duration(attempt) * p.BaseDelay
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do calls fn with attempt numbers 1, 2, ... until it succeeds, the policy
// gives up, or ctx is done. notify, when non-nil, is called before each
// backoff wait. It returns the last outcome and the number of attempts
// made; err is non-nil only when ctx ended the loop.
func (p Policy) Do(ctx context.Context, fn func(attempt int) Outcome, notify func(attempt int, out Outcome, delay time.Duration)) (Outcome, int, error) {
	for attempt := 1; ; attempt++ {
		out := fn(attempt)
		if err := ctx.Err(); err != nil {
			return out, attempt, err
		}
		if !p.ShouldRetry(attempt, out) {
			return out, attempt, nil
		}

		delay := p.DelayBefore(attempt)
		if notify != nil {
			notify(attempt, out, delay)
		}
		if err := Sleep(ctx, delay); err != nil {
			return out, attempt, err
		}
	}
}

// Sleep waits for d or until ctx is done, whichever comes first. The timer
// is released either way.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isFinalClientError(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}
