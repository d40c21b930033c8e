package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/footpredict/pkg/observability"
)

const (
	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20

	// maxErrorBody caps the response text kept on an HTTPError.
	maxErrorBody = 4 << 10
)

// Request describes one backend call. Path is already resolved and escaped;
// Body, when non-nil, is sent as JSON.
type Request struct {
	Op     string
	Method string
	Path   string
	Body   []byte
}

// Executor performs single HTTP attempts against a base URL.
type Executor struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	headers map[string]string
	breaker *Breaker
	hooks   observability.HTTPHooks
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.http = c }
}

// WithHeaders adds default headers to every request.
func WithHeaders(h map[string]string) ExecutorOption {
	return func(e *Executor) {
		for k, v := range h {
			e.headers[k] = v
		}
	}
}

// WithBreaker routes every attempt through b.
func WithBreaker(b *Breaker) ExecutorOption {
	return func(e *Executor) { e.breaker = b }
}

// WithHTTPHooks reports attempt events to h.
func WithHTTPHooks(h observability.HTTPHooks) ExecutorOption {
	return func(e *Executor) {
		if h != nil {
			e.hooks = h
		}
	}
}

// NewHTTPClient creates the HTTP client used when none is supplied.
// It sets no client-level timeout; each attempt carries its own deadline.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
}

// NewExecutor creates an Executor for baseURL that gives each attempt at
// most timeout to complete, body included.
func NewExecutor(baseURL string, timeout time.Duration, opts ...ExecutorOption) *Executor {
	e := &Executor{
		http:    NewHTTPClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		headers: map[string]string{"Accept": "application/json"},
		hooks:   observability.NoopHTTPHooks{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs one attempt of req.
func (e *Executor) Execute(ctx context.Context, req Request) Outcome {
	if e.breaker == nil {
		return e.attempt(ctx, req)
	}
	return e.breaker.Do(ctx, func() Outcome { return e.attempt(ctx, req) })
}

func (e *Executor) attempt(ctx context.Context, req Request) Outcome {
	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out := e.do(ctx, actx, req)
	out.Duration = time.Since(start)

	switch out.Kind {
	case Success, HTTPError:
		e.hooks.OnResponse(ctx, req.Op, out.Status, out.Duration)
	default:
		e.hooks.OnError(ctx, req.Op, out.Kind.String(), out.Cause)
	}
	return out
}

func (e *Executor) do(ctx, actx context.Context, req Request) Outcome {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(actx, method, e.baseURL+req.Path, body)
	if err != nil {
		return Outcome{Kind: NetworkFailure, Cause: err}
	}
	for k, v := range e.headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	e.hooks.OnRequest(ctx, req.Op, method, req.Path)

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return failure(ctx, actx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return failure(ctx, actx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{Kind: HTTPError, Status: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}
	if !jsoniter.Valid(data) {
		return Outcome{Kind: ParseFailure, Status: resp.StatusCode, Cause: errInvalidJSON(data)}
	}
	return Outcome{Kind: Success, Status: resp.StatusCode, Payload: data}
}

// failure classifies a transport error. Only the attempt's own deadline
// counts as a Timeout; a cancelled or expired parent context is reported
// as a NetworkFailure and left to the caller to notice.
func failure(ctx, actx context.Context, err error) Outcome {
	if ctx.Err() == nil && actx.Err() == context.DeadlineExceeded {
		return Outcome{Kind: Timeout, Cause: err}
	}
	return Outcome{Kind: NetworkFailure, Cause: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// errInvalidJSON describes a body that failed validation, quoting a short
// prefix of it for diagnostics.
func errInvalidJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty body")
	}
	const limit = 64
	prefix := data
	if len(prefix) > limit {
		prefix = prefix[:limit]
		for len(prefix) > 0 && !utf8.Valid(prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return fmt.Errorf("body starts with %q", prefix)
}
