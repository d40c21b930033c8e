// Package stubserver implements a simulated football prediction backend.
//
// The server answers the same routes as the production backend with
// generated data, and can inject faults (failed requests, latency and
// malformed bodies) so that client resilience can be exercised locally and
// in tests:
//
//	srv := stubserver.New(stubserver.Options{Seed: 1, FailFirst: 2})
//	ts := httptest.NewServer(srv)
//	defer ts.Close()
//
// Output is deterministic for a non-zero Seed and a fixed clock.
package stubserver

import (
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Route patterns, as reported by [Server.Hits].
const (
	RouteRoot        = "/"
	RouteHealth      = "/health"
	RoutePredict     = "/api/predict"
	RouteLiveMatches = "/api/live-matches"
	RouteLeagues     = "/api/leagues"
	RouteTeams       = "/api/teams/{league}"
)

// Options configures a Server.
type Options struct {
	// Seed makes generated data reproducible. Zero picks a random seed.
	Seed uint64

	// FailFirst fails that many requests with FailStatus before serving
	// normally. FailStatus defaults to 503.
	FailFirst  int
	FailStatus int

	// Delay is added before every response.
	Delay time.Duration

	// Malformed makes successful routes return a body that is not JSON.
	Malformed bool

	// Logger receives one line per request. Defaults to discard.
	Logger *log.Logger

	// Now replaces time.Now for response timestamps.
	Now func() time.Time
}

// Server is the simulated backend. It implements http.Handler.
type Server struct {
	router chi.Router
	logger *log.Logger
	now    func() time.Time

	mu         sync.Mutex
	rng        *rand.Rand
	failLeft   int
	failStatus int
	delay      time.Duration
	malformed  bool
	hits       map[string]int
}

// New creates a Server.
func New(opts Options) *Server {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	if opts.FailStatus == 0 {
		opts.FailStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		logger:     opts.Logger,
		now:        opts.Now,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		failLeft:   opts.FailFirst,
		failStatus: opts.FailStatus,
		delay:      opts.Delay,
		malformed:  opts.Malformed,
		hits:       make(map[string]int),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Group(func(r chi.Router) {
		r.Use(s.inject)
		r.Get(RouteRoot, s.handleRoot)
		r.Get(RouteHealth, s.handleHealth)
		r.Post(RoutePredict, s.handlePredict)
		r.Get(RouteLiveMatches, s.handleLiveMatches)
		r.Get(RouteLeagues, s.handleLeagues)
		r.Get(RouteTeams, s.handleTeams)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hits returns how many requests reached route, including failed ones.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits returns the number of requests across all routes.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// FailNext makes the next n requests fail with status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLeft = n
	s.failStatus = status
}

// SetDelay changes the latency added to every response.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetMalformed switches malformed bodies on or off.
func (s *Server) SetMalformed(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformed = on
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}

// inject counts the request against its route and applies the configured
// faults. It runs after routing, so the route pattern is known.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := chi.RouteContext(r.Context()).RoutePattern()

		s.mu.Lock()
		s.hits[route]++
		delay := s.delay
		fail := s.failLeft > 0
		status := s.failStatus
		if fail {
			s.failLeft--
		}
		malformed := s.malformed
		s.mu.Unlock()

		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-r.Context().Done():
				t.Stop()
				return
			}
		}
		if fail {
			writeJSON(w, status, map[string]string{"detail": "injected failure"})
			return
		}
		if malformed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"truncated": [`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// timestamp formats t the way the production backend does.
func timestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000")
}
