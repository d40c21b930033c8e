// Package metrics exports client events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/footpredict/pkg/observability"
)

const namespace = "footpredict"

// Hooks implements [observability.Hooks] by updating Prometheus collectors.
type Hooks struct {
	CacheLookups    *prometheus.CounterVec
	CacheWriteBytes *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	Responses       *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	Retries         *prometheus.CounterVec
	RetryDelay      *prometheus.HistogramVec
	StaleFallbacks  *prometheus.CounterVec
	StaleAge        *prometheus.HistogramVec
	Exhausted       *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
}

// Ensure Hooks implements observability.Hooks.
var _ observability.Hooks = (*Hooks)(nil)

// NewHooks creates the collectors and registers them with reg.
func NewHooks(reg prometheus.Registerer) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by operation and result (hit or miss).",
		}, []string{"op", "result"}),
		CacheWriteBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{"op"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Request attempts sent to the backend.",
		}, []string{"op", "method"}),
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses received from the backend by status code.",
		}, []string{"op", "status_code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of attempts that received a response.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		RequestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Attempts that produced no usable response, by outcome.",
		}, []string{"op", "outcome"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Failed attempts followed by another attempt.",
		}, []string{"op"}),
		RetryDelay: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Backoff waits between attempts.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"op"}),
		StaleFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_fallbacks_total",
			Help:      "Operations answered from an expired cache entry.",
		}, []string{"op"}),
		StaleAge: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stale_age_seconds",
			Help:      "Age of the entries served as stale fallback.",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}, []string{"op"}),
		Exhausted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exhausted_total",
			Help:      "Operations that failed after all attempts with nothing cached.",
		}, []string{"op"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_fallbacks_total",
			Help:      "Placeholder results returned instead of backend data.",
		}, []string{"op"}),
	}
}

func (h *Hooks) OnCacheHit(_ context.Context, op string) {
	h.CacheLookups.WithLabelValues(op, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, op string) {
	h.CacheLookups.WithLabelValues(op, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, op string, size int) {
	h.CacheWriteBytes.WithLabelValues(op).Add(float64(size))
}

func (h *Hooks) OnRequest(_ context.Context, op, method, _ string) {
	h.Requests.WithLabelValues(op, method).Inc()
}

func (h *Hooks) OnResponse(_ context.Context, op string, status int, d time.Duration) {
	h.Responses.WithLabelValues(op, strconv.Itoa(status)).Inc()
	h.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, op, outcome string, _ error) {
	h.RequestErrors.WithLabelValues(op, outcome).Inc()
}

func (h *Hooks) OnRetry(_ context.Context, op string, _ int, delay time.Duration) {
	h.Retries.WithLabelValues(op).Inc()
	h.RetryDelay.WithLabelValues(op).Observe(delay.Seconds())
}

func (h *Hooks) OnStaleFallback(_ context.Context, op string, age time.Duration) {
	h.StaleFallbacks.WithLabelValues(op).Inc()
	h.StaleAge.WithLabelValues(op).Observe(age.Seconds())
}

func (h *Hooks) OnExhausted(_ context.Context, op string, _ int) {
	h.Exhausted.WithLabelValues(op).Inc()
}

func (h *Hooks) OnFallback(_ context.Context, op string) {
	h.Fallbacks.WithLabelValues(op).Inc()
}

// Handler serves the metrics gathered by g on /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return r
}
