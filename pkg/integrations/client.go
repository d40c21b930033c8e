package integrations

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/footpredict/pkg/cache"
	"github.com/matzehuels/footpredict/pkg/config"
	"github.com/matzehuels/footpredict/pkg/errors"
	"github.com/matzehuels/footpredict/pkg/httputil"
	"github.com/matzehuels/footpredict/pkg/observability"
)

// Client provides the resilient request layer shared by domain clients.
// It resolves endpoints, runs attempts under the retry policy, and keeps
// successful payloads in a cache for fresh reads and stale fallback.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	cfg    config.Config
	exec   *httputil.Executor
	policy httputil.Policy
	cache  cache.Cache
	keyer  cache.Keyer
	hooks  observability.Hooks
	logger *log.Logger
	now    func() time.Time
	flight singleflight.Group
}

// Option configures a Client.
type Option func(*options)

type options struct {
	cache      cache.Cache
	keyer      cache.Keyer
	hooks      observability.Hooks
	logger     *log.Logger
	httpClient *http.Client
	now        func() time.Time
}

// WithCache replaces the default in-memory cache. Pass [cache.NewNullCache]
// to disable caching.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithKeyer replaces the default cache key derivation.
func WithKeyer(k cache.Keyer) Option {
	return func(o *options) { o.keyer = k }
}

// WithHooks reports client events to h.
func WithHooks(h observability.Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithLogger sets the logger for retry and fallback messages.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient replaces the HTTP client used for attempts.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewClient validates cfg and creates a Client. Without options it uses an
// in-memory cache bounded by cfg.MaxEntries, no hooks and a discard logger.
func NewClient(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	if o.cache == nil {
		o.cache = cache.NewMemory(cache.WithMaxEntries(cfg.MaxEntries), cache.WithClock(o.now))
	}
	if o.keyer == nil {
		o.keyer = cache.NewDefaultKeyer()
	}
	hooks := observability.OrNoop(o.hooks)

	// Endpoints are copied so later changes to the caller's map are not seen.
	endpoints := make(map[string]string, len(cfg.Endpoints))
	for op, path := range cfg.Endpoints {
		endpoints[op] = path
	}
	cfg.Endpoints = endpoints

	execOpts := []httputil.ExecutorOption{
		httputil.WithHeaders(map[string]string{"User-Agent": cfg.UserAgent}),
		httputil.WithHTTPHooks(hooks),
	}
	if o.httpClient != nil {
		execOpts = append(execOpts, httputil.WithHTTPClient(o.httpClient))
	}
	if cfg.Breaker.Enabled {
		execOpts = append(execOpts, httputil.WithBreaker(httputil.NewBreaker(cfg.BaseURL, cfg.Breaker, o.logger)))
	}

	return &Client{
		cfg:    cfg,
		exec:   httputil.NewExecutor(cfg.BaseURL, cfg.Timeout, execOpts...),
		policy: httputil.PolicyFromConfig(cfg),
		cache:  o.cache,
		keyer:  o.keyer,
		hooks:  hooks,
		logger: o.logger,
		now:    o.now,
	}, nil
}

// Config returns the client's configuration.
func (c *Client) Config() config.Config { return c.cfg }

// Logger returns the client's logger.
func (c *Client) Logger() *log.Logger { return c.logger }

// Hooks returns the client's observability hooks.
func (c *Client) Hooks() observability.Hooks { return c.hooks }

// Now returns the current time from the client's clock.
func (c *Client) Now() time.Time { return c.now() }

// ClearCache drops every cached payload.
func (c *Client) ClearCache() {
	c.cache.Clear()
	c.logger.Debug("cache cleared")
}

// Fetch runs call through the cache and retry state machine:
//
//   - CacheHit: a fresh entry exists and call.Refresh is false
//   - NetworkSuccess: an attempt succeeded; the payload was written through
//   - StaleFallback: all attempts failed and an older entry was served
//
// When all attempts fail and nothing is cached, Fetch returns an
// [errors.ExhaustedError] wrapping the last attempt's error. If ctx ends
// first, ctx.Err() is returned instead.
//
// Concurrent fetches of the same cacheable resource share one attempt
// sequence; the returned Payload must be treated as read-only. A caller whose
// ctx ends stops waiting without affecting the others, and the shared
// sequence still completes and fills the cache.
func (c *Client) Fetch(ctx context.Context, call Call) (Result, error) {
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	path, err := c.cfg.Endpoint(call.Op, call.Params)
	if err != nil {
		return Result{}, err
	}

	if !call.cacheable() {
		return c.fetchNetwork(ctx, call, path, "")
	}

	key := c.keyer.Key(call.Op, call.keyParams()...)
	if !call.Refresh {
		if e, ok := c.cache.GetFresh(key, c.cfg.CacheTTL); ok {
			c.hooks.OnCacheHit(ctx, call.Op)
			c.logger.Debug("cache hit", "op", call.Op, "key", key)
			return Result{Payload: e.Value, State: CacheHit, Attempts: 0, StoredAt: e.StoredAt}, nil
		}
		c.hooks.OnCacheMiss(ctx, call.Op)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// The shared attempt sequence must outlive any single caller: each caller
	// waits under its own ctx, and the sequence is bounded by the policy.
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		return c.fetchNetwork(shared, call, path, key)
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("joined in-flight request", "op", call.Op, "key", key)
		}
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	case <-ctx.Done():
		c.logger.Debug("stopped waiting for in-flight request", "op", call.Op, "key", key, "err", ctx.Err())
		return Result{}, ctx.Err()
	}
}

// fetchNetwork runs the attempt loop. key is empty for calls that bypass
// the cache entirely.
func (c *Client) fetchNetwork(ctx context.Context, call Call, path, key string) (Result, error) {
	var body []byte
	if call.Body != nil {
		data, err := jsoniter.Marshal(call.Body)
		if err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s: encode request body", call.Op)
		}
		body = data
	}
	req := httputil.Request{Op: call.Op, Method: call.Method, Path: path, Body: body}

	out, attempts, err := c.policy.Do(ctx, func(n int) httputil.Outcome {
		c.logger.Debug("request", "op", call.Op, "method", call.Method, "path", path, "attempt", n)
		out := c.exec.Execute(ctx, req)
		if out.OK() && call.Check != nil {
			if err := call.Check(out.Payload); err != nil {
				out = httputil.Outcome{Kind: httputil.ParseFailure, Status: out.Status, Cause: err, Duration: out.Duration}
			}
		}
		return out
	}, func(n int, out httputil.Outcome, delay time.Duration) {
		c.hooks.OnRetry(ctx, call.Op, n, delay)
		c.logger.Warn("attempt failed, retrying",
			"op", call.Op, "attempt", n, "outcome", out.Kind, "err", out.Err(), "delay", delay)
	})
	if err != nil {
		return Result{}, err
	}

	if out.OK() {
		now := c.now()
		if key != "" {
			c.cache.Put(key, out.Payload)
			c.hooks.OnCacheSet(ctx, call.Op, len(out.Payload))
		}
		return Result{Payload: out.Payload, State: NetworkSuccess, StoredAt: now, Attempts: attempts}, nil
	}

	if key != "" {
		if e, ok := c.cache.Get(key); ok {
			age := e.Age(c.now())
			c.hooks.OnStaleFallback(ctx, call.Op, age)
			c.logger.Warn("serving stale data",
				"op", call.Op, "age", age.Round(time.Second), "attempts", attempts, "err", out.Err())
			return Result{Payload: e.Value, State: StaleFallback, StoredAt: e.StoredAt, Attempts: attempts}, nil
		}
	}

	c.hooks.OnExhausted(ctx, call.Op, attempts)
	return Result{}, errors.Exhausted(call.Op, attempts, out.Err())
}
