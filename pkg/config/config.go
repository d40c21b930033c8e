// Package config holds the static configuration of the footpredict client.
//
// A Config is assembled once, in this order, and then treated as immutable:
//
//  1. [Default] values
//  2. an optional TOML file
//  3. FOOTPREDICT_* environment variables
//
// followed by [Config.Validate]. CLI flags are applied by the caller between
// loading and validation.
//
// Example file:
//
//	base_url = "https://football-ai-backend-odhw.onrender.com"
//	timeout = "10s"
//	max_attempts = 3
//	backoff = "exponential"
//
//	[endpoints]
//	teams = "/api/v2/teams/{league}"
//
//	[breaker]
//	enabled = true
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/matzehuels/footpredict/pkg/buildinfo"
	"github.com/matzehuels/footpredict/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by [Load].
const EnvPrefix = "FOOTPREDICT_"

// Logical operation names. They key both the endpoint table and the cache.
const (
	OpHealth      = "health"
	OpLeagues     = "leagues"
	OpTeams       = "teams"
	OpLiveMatches = "live-matches"
	OpPredict     = "predict"
)

// Well-known backend addresses.
const (
	LocalURL      = "http://localhost:5000"
	ProductionURL = "https://football-ai-backend-odhw.onrender.com"
)

// Backoff selects how retry delays grow with the attempt number.
type Backoff string

const (
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// Config is the client configuration.
type Config struct {
	BaseURL string `toml:"base_url" env:"BASE_URL"`

	// Endpoints maps operation names to path templates. The environment
	// form is "teams:/api/v2/teams/{league},leagues:/api/v2/leagues" and
	// replaces the whole table.
	Endpoints map[string]string `toml:"endpoints" env:"ENDPOINTS"`

	// Per-attempt request timeout.
	Timeout time.Duration `toml:"timeout" env:"TIMEOUT"`

	MaxAttempts       int           `toml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay         time.Duration `toml:"base_delay" env:"BASE_DELAY"`
	Backoff           Backoff       `toml:"backoff" env:"BACKOFF"`
	MaxDelay          time.Duration `toml:"max_delay" env:"MAX_DELAY"`
	RetryClientErrors bool          `toml:"retry_client_errors" env:"RETRY_CLIENT_ERRORS"`

	CacheTTL   time.Duration `toml:"cache_ttl" env:"CACHE_TTL"`
	MaxEntries int           `toml:"max_entries" env:"MAX_ENTRIES"`

	RefreshInterval    time.Duration `toml:"refresh_interval" env:"REFRESH_INTERVAL"`
	PredictionInterval time.Duration `toml:"prediction_interval" env:"PREDICTION_INTERVAL"`

	UserAgent string `toml:"user_agent" env:"USER_AGENT"`

	Breaker Breaker `toml:"breaker" envPrefix:"BREAKER_"`
}

// Breaker configures the optional circuit breaker in front of the backend.
type Breaker struct {
	Enabled          bool          `toml:"enabled" env:"ENABLED"`
	MinRequests      uint32        `toml:"min_requests" env:"MIN_REQUESTS"`
	FailureRatio     float64       `toml:"failure_ratio" env:"FAILURE_RATIO"`
	OpenTimeout      time.Duration `toml:"open_timeout" env:"OPEN_TIMEOUT"`
	HalfOpenRequests uint32        `toml:"half_open_requests" env:"HALF_OPEN_REQUESTS"`
}

// DefaultEndpoints returns the path template for every operation.
func DefaultEndpoints() map[string]string {
	return map[string]string{
		OpHealth:      "/health",
		OpLeagues:     "/api/leagues",
		OpTeams:       "/api/teams/{league}",
		OpLiveMatches: "/api/live-matches",
		OpPredict:     "/api/predict",
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:            LocalURL,
		Endpoints:          DefaultEndpoints(),
		Timeout:            10 * time.Second,
		MaxAttempts:        3,
		BaseDelay:          time.Second,
		Backoff:            BackoffLinear,
		CacheTTL:           30 * time.Second,
		MaxEntries:         256,
		RefreshInterval:    30 * time.Second,
		PredictionInterval: 10 * time.Minute,
		UserAgent:          buildinfo.UserAgent(),
		Breaker: Breaker{
			MinRequests:      3,
			FailureRatio:     0.6,
			OpenTimeout:      30 * time.Second,
			HalfOpenRequests: 1,
		},
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty) and the environment. The result is not validated so that
// callers can apply flag overrides first.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		var file Config
		md, err := toml.DecodeFile(path, &file)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
		cfg.merge(file, md)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read environment")
	}
	return cfg, nil
}

// merge copies the keys actually present in a decoded file onto c. Endpoint
// entries are merged one by one so a file may override a single path.
func (c *Config) merge(f Config, md toml.MetaData) {
	set := func(key ...string) bool { return md.IsDefined(key...) }

	if set("base_url") {
		c.BaseURL = f.BaseURL
	}
	for op, path := range f.Endpoints {
		c.Endpoints[op] = path
	}
	if set("timeout") {
		c.Timeout = f.Timeout
	}
	if set("max_attempts") {
		c.MaxAttempts = f.MaxAttempts
	}
	if set("base_delay") {
		c.BaseDelay = f.BaseDelay
	}
	if set("backoff") {
		c.Backoff = f.Backoff
	}
	if set("max_delay") {
		c.MaxDelay = f.MaxDelay
	}
	if set("retry_client_errors") {
		c.RetryClientErrors = f.RetryClientErrors
	}
	if set("cache_ttl") {
		c.CacheTTL = f.CacheTTL
	}
	if set("max_entries") {
		c.MaxEntries = f.MaxEntries
	}
	if set("refresh_interval") {
		c.RefreshInterval = f.RefreshInterval
	}
	if set("prediction_interval") {
		c.PredictionInterval = f.PredictionInterval
	}
	if set("user_agent") {
		c.UserAgent = f.UserAgent
	}
	if set("breaker", "enabled") {
		c.Breaker.Enabled = f.Breaker.Enabled
	}
	if set("breaker", "min_requests") {
		c.Breaker.MinRequests = f.Breaker.MinRequests
	}
	if set("breaker", "failure_ratio") {
		c.Breaker.FailureRatio = f.Breaker.FailureRatio
	}
	if set("breaker", "open_timeout") {
		c.Breaker.OpenTimeout = f.Breaker.OpenTimeout
	}
	if set("breaker", "half_open_requests") {
		c.Breaker.HalfOpenRequests = f.Breaker.HalfOpenRequests
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "base URL must be absolute, got %q", c.BaseURL)
	}
	if err := errors.ValidateURL(c.BaseURL); err != nil {
		return err
	}
	for _, op := range []string{OpHealth, OpLeagues, OpTeams, OpLiveMatches, OpPredict} {
		if !strings.HasPrefix(c.Endpoints[op], "/") {
			return errors.New(errors.ErrCodeInvalidConfig, "endpoint %q must start with /", op)
		}
	}
	switch {
	case c.Timeout <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must be positive")
	case c.MaxAttempts < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max attempts must be at least 1")
	case c.BaseDelay < 0 || c.MaxDelay < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "retry delays cannot be negative")
	case c.CacheTTL <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "cache TTL must be positive")
	case c.MaxEntries < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "max entries cannot be negative")
	case c.RefreshInterval <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "refresh interval must be positive")
	}
	if c.Backoff != BackoffLinear && c.Backoff != BackoffExponential {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown backoff %q (want linear or exponential)", c.Backoff)
	}
	if c.Breaker.Enabled && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		return errors.New(errors.ErrCodeInvalidConfig, "breaker failure ratio must be in (0, 1]")
	}
	return nil
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Endpoint resolves the path template for op. Every {name} placeholder is
// replaced by the path-escaped value of params[name].
func (c Config) Endpoint(op string, params map[string]string) (string, error) {
	tmpl, ok := c.Endpoints[op]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown operation %q", op)
	}

	var missing string
	path := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := params[name]
		if !ok && missing == "" {
			missing = name
		}
		return url.PathEscape(v)
	})
	if missing != "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "%s: missing parameter %q", op, missing)
	}
	return path, nil
}

// String returns a one-line summary for debug logs.
func (c Config) String() string {
	return fmt.Sprintf("base=%s timeout=%s attempts=%d backoff=%s/%s ttl=%s",
		c.BaseURL, c.Timeout, c.MaxAttempts, c.Backoff, c.BaseDelay, c.CacheTTL)
}
