package integrations

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/footpredict/pkg/cache"
	"github.com/matzehuels/footpredict/pkg/config"
	"github.com/matzehuels/footpredict/pkg/errors"
	"github.com/matzehuels/footpredict/pkg/observability"
)

// recorder captures resilience events.
type recorder struct {
	observability.Noop

	mu        sync.Mutex
	delays    []time.Duration
	stale     int
	exhausted int
}

func (r *recorder) OnRetry(_ context.Context, _ string, _ int, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, delay)
}

func (r *recorder) OnStaleFallback(context.Context, string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale++
}

func (r *recorder) OnExhausted(context.Context, string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted++
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.Timeout = time.Second
	cfg.BaseDelay = time.Millisecond
	return cfg
}

// backend serves status codes from a script, then 200 with body.
type backend struct {
	hits   atomic.Int64
	mu     sync.Mutex
	script []int
	body   string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.hits.Add(1)
	b.mu.Lock()
	status := http.StatusOK
	if len(b.script) > 0 {
		status, b.script = b.script[0], b.script[1:]
	}
	body := b.body
	b.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Write([]byte(body))
}

func (b *backend) set(body string, script ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.body = body
	b.script = script
}

func newTestClient(t *testing.T, cfg config.Config, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(cfg, opts...)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client
}

func TestNewClientInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxAttempts = 0
	if _, err := NewClient(cfg); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("NewClient() error = %v, want INVALID_CONFIG", err)
	}
}

func TestFetchCacheHit(t *testing.T) {
	b := &backend{body: `{"leagues":["La Liga"]}`}
	server := httptest.NewServer(b)
	defer server.Close()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	client := newTestClient(t, testConfig(server.URL), WithClock(clock.Now))
	ctx := context.Background()

	first, err := client.Fetch(ctx, Call{Op: config.OpLeagues})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	clock.Advance(10 * time.Second)
	if first.State != NetworkSuccess || first.Attempts != 1 {
		t.Errorf("first = %v after %d attempts, want network_success after 1", first.State, first.Attempts)
	}

	second, err := client.Fetch(ctx, Call{Op: config.OpLeagues})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if second.State != CacheHit {
		t.Errorf("second = %v, want cache_hit", second.State)
	}
	if string(second.Payload) != string(first.Payload) {
		t.Errorf("Payload = %s, want %s", second.Payload, first.Payload)
	}
	if !second.StoredAt.Equal(first.StoredAt) {
		t.Errorf("StoredAt = %v, want %v", second.StoredAt, first.StoredAt)
	}
	if n := b.hits.Load(); n != 1 {
		t.Errorf("backend hits = %d, want 1", n)
	}
}

func TestFetchParamsSeparateCacheEntries(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		mu.Unlock()
		w.Write([]byte(`{"teams":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))
	ctx := context.Background()

	for _, league := range []string{"La Liga", "Premier League", "La Liga"} {
		if _, err := client.Fetch(ctx, Call{Op: config.OpTeams, Params: map[string]string{"league": league}}); err != nil {
			t.Fatalf("Fetch(%q) error: %v", league, err)
		}
	}

	want := []string{"/api/teams/La%20Liga", "/api/teams/Premier%20League"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestFetchRetriesWithNonDecreasingDelays(t *testing.T) {
	tests := []struct {
		name    string
		backoff config.Backoff
		want    []time.Duration
	}{
		{"linear", config.BackoffLinear, []time.Duration{time.Millisecond, 2 * time.Millisecond}},
		{"exponential", config.BackoffExponential, []time.Duration{time.Millisecond, 2 * time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &backend{}
			b.set(`{"status":"ok"}`, http.StatusInternalServerError, http.StatusBadGateway)
			server := httptest.NewServer(b)
			defer server.Close()

			cfg := testConfig(server.URL)
			cfg.Backoff = tt.backoff
			rec := &recorder{}
			client := newTestClient(t, cfg, WithHooks(rec))

			res, err := client.Fetch(context.Background(), Call{Op: config.OpHealth})
			if err != nil {
				t.Fatalf("Fetch() error: %v", err)
			}
			if res.State != NetworkSuccess || res.Attempts != 3 {
				t.Errorf("got %v after %d attempts, want network_success after 3", res.State, res.Attempts)
			}
			if len(rec.delays) != len(tt.want) {
				t.Fatalf("delays = %v, want %v", rec.delays, tt.want)
			}
			for i := range tt.want {
				if rec.delays[i] != tt.want[i] {
					t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], tt.want[i])
				}
			}
		})
	}
}

func TestFetchStaleFallback(t *testing.T) {
	b := &backend{body: `{"matches":[{"id":1}]}`}
	server := httptest.NewServer(b)
	defer server.Close()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cfg := testConfig(server.URL)
	rec := &recorder{}
	client := newTestClient(t, cfg, WithClock(clock.Now), WithHooks(rec))
	ctx := context.Background()

	first, err := client.Fetch(ctx, Call{Op: config.OpLiveMatches})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	clock.Advance(cfg.CacheTTL + time.Second)
	b.set("", http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)

	res, err := client.Fetch(ctx, Call{Op: config.OpLiveMatches})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.State != StaleFallback || !res.Stale() {
		t.Errorf("State = %v, want stale_fallback", res.State)
	}
	if string(res.Payload) != string(first.Payload) {
		t.Errorf("Payload = %s, want %s", res.Payload, first.Payload)
	}
	if !res.StoredAt.Equal(first.StoredAt) {
		t.Errorf("StoredAt = %v, want %v", res.StoredAt, first.StoredAt)
	}
	if res.Attempts != cfg.MaxAttempts {
		t.Errorf("Attempts = %d, want %d", res.Attempts, cfg.MaxAttempts)
	}
	if rec.stale != 1 || rec.exhausted != 0 {
		t.Errorf("stale = %d exhausted = %d, want 1 and 0", rec.stale, rec.exhausted)
	}
}

func TestFetchExhausted(t *testing.T) {
	b := &backend{}
	b.set("", http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	server := httptest.NewServer(b)
	defer server.Close()

	rec := &recorder{}
	client := newTestClient(t, testConfig(server.URL), WithHooks(rec))

	_, err := client.Fetch(context.Background(), Call{Op: config.OpTeams, Params: map[string]string{"league": "La Liga"}})
	if !errors.Is(err, errors.ErrCodeExhausted) {
		t.Fatalf("error = %v, want ATTEMPTS_EXHAUSTED", err)
	}
	if !errors.Is(err, errors.ErrCodeHTTPStatus) {
		t.Errorf("error = %v, want HTTP_STATUS in chain", err)
	}

	var ex *errors.ExhaustedError
	if !stderrors.As(err, &ex) {
		t.Fatalf("error %T is not *ExhaustedError", err)
	}
	if ex.Op != config.OpTeams || ex.Attempts != 3 {
		t.Errorf("ExhaustedError = %+v", ex)
	}
	var se *errors.StatusError
	if !stderrors.As(err, &se) || se.Status != http.StatusServiceUnavailable {
		t.Errorf("last error = %v, want status 503", ex.Last)
	}
	if b.hits.Load() != 3 || rec.exhausted != 1 {
		t.Errorf("hits = %d exhausted = %d, want 3 and 1", b.hits.Load(), rec.exhausted)
	}
}

func TestFetchParseFailureExhausts(t *testing.T) {
	b := &backend{body: "<html>maintenance</html>"}
	server := httptest.NewServer(b)
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))
	_, err := client.Fetch(context.Background(), Call{Op: config.OpLeagues})
	if !errors.Is(err, errors.ErrCodeExhausted) || !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("error = %v, want ATTEMPTS_EXHAUSTED caused by PARSE_ERROR", err)
	}
}

func TestFetchClientErrorPolicy(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		retryClient  bool
		wantAttempts int64
	}{
		{"404 is final", http.StatusNotFound, false, 1},
		{"400 is final", http.StatusBadRequest, false, 1},
		{"429 is retried", http.StatusTooManyRequests, false, 3},
		{"408 is retried", http.StatusRequestTimeout, false, 3},
		{"404 retried when enabled", http.StatusNotFound, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &backend{}
			b.set("", tt.status, tt.status, tt.status)
			server := httptest.NewServer(b)
			defer server.Close()

			cfg := testConfig(server.URL)
			cfg.RetryClientErrors = tt.retryClient
			client := newTestClient(t, cfg)

			_, err := client.Fetch(context.Background(), Call{Op: config.OpLeagues})
			if !errors.Is(err, errors.ErrCodeExhausted) {
				t.Fatalf("error = %v, want ATTEMPTS_EXHAUSTED", err)
			}
			if got := b.hits.Load(); got != tt.wantAttempts {
				t.Errorf("hits = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestFetchRefreshWritesThrough(t *testing.T) {
	b := &backend{body: `{"matches":[]}`}
	server := httptest.NewServer(b)
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))
	ctx := context.Background()

	if _, err := client.Fetch(ctx, Call{Op: config.OpLiveMatches}); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	b.set(`{"matches":[{"id":7}]}`)
	res, err := client.Fetch(ctx, Call{Op: config.OpLiveMatches, Refresh: true})
	if err != nil {
		t.Fatalf("Fetch(refresh) error: %v", err)
	}
	if res.State != NetworkSuccess || string(res.Payload) != `{"matches":[{"id":7}]}` {
		t.Errorf("refresh = %v %s", res.State, res.Payload)
	}

	res, err = client.Fetch(ctx, Call{Op: config.OpLiveMatches})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.State != CacheHit || string(res.Payload) != `{"matches":[{"id":7}]}` {
		t.Errorf("after refresh = %v %s, want cache hit of new payload", res.State, res.Payload)
	}
	if b.hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", b.hits.Load())
	}
}

func TestFetchWithBodyIsNeverCached(t *testing.T) {
	b := &backend{body: `{"prediction":"home"}`}
	server := httptest.NewServer(b)
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))
	call := Call{Op: config.OpPredict, Method: http.MethodPost, Body: map[string]string{"home_team": "A"}}

	for range 2 {
		res, err := client.Fetch(context.Background(), call)
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if res.State != NetworkSuccess {
			t.Errorf("State = %v, want network_success", res.State)
		}
	}
	if b.hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", b.hits.Load())
	}
}

func TestFetchBodyEncodeError(t *testing.T) {
	client := newTestClient(t, testConfig("http://127.0.0.1:1"))
	_, err := client.Fetch(context.Background(), Call{Op: config.OpPredict, Method: http.MethodPost, Body: func() {}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestFetchUnknownOp(t *testing.T) {
	client := newTestClient(t, testConfig("http://127.0.0.1:1"))
	_, err := client.Fetch(context.Background(), Call{Op: "standings"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestFetchNullCache(t *testing.T) {
	b := &backend{body: `{"leagues":[]}`}
	server := httptest.NewServer(b)
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), WithCache(cache.NewNullCache()))
	for range 2 {
		if _, err := client.Fetch(context.Background(), Call{Op: config.OpLeagues}); err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
	}
	if b.hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", b.hits.Load())
	}
}

func TestFetchCoalescesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`{"leagues":["Serie A"]}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Fetch(context.Background(), Call{Op: config.OpLeagues})
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Fetch() error: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestFetchJoinedCallerKeepsOwnDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Write([]byte(`{"leagues":["Serie A"]}`))
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, testConfig(server.URL))

	first := make(chan error, 1)
	go func() {
		_, err := client.Fetch(context.Background(), Call{Op: config.OpLeagues})
		first <- err
	}()
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := client.Fetch(ctx, Call{Op: config.OpLeagues})
	elapsed := time.Since(start)

	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("joined Fetch() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("joined Fetch() returned after %v, want about 50ms", elapsed)
	}

	release <- struct{}{}
	if err := <-first; err != nil {
		t.Errorf("first Fetch() error: %v", err)
	}
}

func TestFetchFirstCallerCancelDoesNotFailOthers(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Write([]byte(`{"leagues":["Serie A"]}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := client.Fetch(ctx, Call{Op: config.OpLeagues})
		first <- err
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan Result, 1)
	secondErr := make(chan error, 1)
	go func() {
		res, err := client.Fetch(context.Background(), Call{Op: config.OpLeagues})
		second <- res
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-first; !stderrors.Is(err, context.Canceled) {
		t.Errorf("first Fetch() error = %v, want context.Canceled", err)
	}
	res := <-second
	if err := <-secondErr; err != nil {
		t.Fatalf("second Fetch() error: %v", err)
	}
	if res.State != NetworkSuccess || string(res.Payload) != `{"leagues":["Serie A"]}` {
		t.Errorf("second = %v %s, want network_success with payload", res.State, res.Payload)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("backend hits = %d, want 1 shared attempt", n)
	}

	cached, err := client.Fetch(context.Background(), Call{Op: config.OpLeagues})
	if err != nil || cached.State != CacheHit {
		t.Errorf("after shared fetch: state = %v, err = %v, want cache_hit", cached.State, err)
	}
}

func TestFetchContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := newTestClient(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := client.Fetch(ctx, Call{Op: config.OpLeagues})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Fetch() took %v after cancel", elapsed)
	}
}

func TestFetchAttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxAttempts = 2
	client := newTestClient(t, cfg)

	_, err := client.Fetch(context.Background(), Call{Op: config.OpHealth})
	if !errors.Is(err, errors.ErrCodeExhausted) || !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("error = %v, want ATTEMPTS_EXHAUSTED caused by TIMEOUT", err)
	}
}

func TestClearCache(t *testing.T) {
	b := &backend{body: `{"leagues":[]}`}
	server := httptest.NewServer(b)
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))
	ctx := context.Background()
	client.Fetch(ctx, Call{Op: config.OpLeagues})
	client.ClearCache()

	res, err := client.Fetch(ctx, Call{Op: config.OpLeagues})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.State != NetworkSuccess {
		t.Errorf("State = %v, want network_success after ClearCache", res.State)
	}
}

func TestCallKeyParamsSorted(t *testing.T) {
	c := Call{Params: map[string]string{"season": "2024", "league": "La Liga"}}
	got := c.keyParams()
	if len(got) != 2 || got[0] != "La Liga" || got[1] != "2024" {
		t.Errorf("keyParams() = %v, want [La Liga 2024]", got)
	}
}

func TestFetchCheckRejectsPayload(t *testing.T) {
	b := &backend{body: `{"unexpected":true}`}
	server := httptest.NewServer(b)
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL))
	call := Call{Op: config.OpLeagues, Check: func([]byte) error { return stderrors.New("missing leagues") }}

	_, err := client.Fetch(context.Background(), call)
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Fatalf("error = %v, want PARSE_ERROR", err)
	}
	if b.hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", b.hits.Load())
	}

	call.Check = nil
	res, err := client.Fetch(context.Background(), call)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.State != NetworkSuccess {
		t.Errorf("State = %v, want network_success (rejected payload must not be cached)", res.State)
	}
}
