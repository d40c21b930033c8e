package httputil

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/matzehuels/footpredict/pkg/config"
	apperr "github.com/matzehuels/footpredict/pkg/errors"
)

// errServerFault marks an attempt as a failure in the breaker's counts.
var errServerFault = errors.New("server fault")

// Breaker is a circuit breaker in front of the backend. Network failures,
// timeouts and 5xx responses count as failures; 4xx and parse failures do
// not.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a Breaker named name. State changes are logged at
// warn level.
func NewBreaker(name string, cfg config.Breaker, logger *log.Logger) *Breaker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.OpenTimeout,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < max(cfg.MinRequests, 1) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn unless the breaker is open, in which case it returns a
// NetworkFailure carrying a CIRCUIT_OPEN error without calling fn.
// Attempts that fail because ctx ended are not counted against the backend.
func (b *Breaker) Do(ctx context.Context, fn func() Outcome) Outcome {
	res, err := b.cb.Execute(func() (interface{}, error) {
		out := fn()
		if out.serverFault() && ctx.Err() == nil {
			return out, errServerFault
		}
		return out, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return Outcome{
			Kind:  NetworkFailure,
			Cause: apperr.Wrap(apperr.ErrCodeCircuitOpen, err, "backend %s unavailable", b.cb.Name()),
		}
	}
	return res.(Outcome)
}

// State returns the breaker state name: closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
