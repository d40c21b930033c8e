// Package pkg provides the libraries behind footpredict, a resilient client
// for a football match prediction backend.
//
// # Overview
//
// Every read goes through the same path: a fresh cache entry is returned
// without touching the network, otherwise the request is retried with
// backoff, and when all attempts fail an expired cache entry is served and
// flagged as stale. Predictions skip the cache and degrade to a placeholder
// instead.
//
//	Call (op, params)
//	         ↓
//	    [cache] fresh entry? → CACHE_HIT
//	         ↓
//	    [httputil] Executor + Policy (timeout, retry, backoff)
//	         ↓
//	    success → cache write → NETWORK_SUCCESS
//	    failure → expired entry → STALE_FALLBACK
//	            → no entry      → ATTEMPTS_EXHAUSTED
//
// # Quick Start
//
//	cfg := config.Default()
//	cfg.BaseURL = config.ProductionURL
//
//	client, _ := footpredict.NewClient(cfg)
//	leagues, _ := client.GetLeagues(ctx)
//	p, _ := client.PredictMatch(ctx, footpredict.PredictionRequest{
//	    HomeTeam: "Arsenal",
//	    AwayTeam: "Chelsea",
//	    League:   "Premier League",
//	})
//	if p.Fallback() {
//	    fmt.Println("backend unavailable:", p.Err)
//	}
//
// # Main Packages
//
// [config] - Settings loaded from defaults, a TOML file and FOOTPREDICT_*
// environment variables, in that order.
//
// [errors] - Coded errors shared by every package, including the
// [errors.StatusError] and [errors.ExhaustedError] types.
//
// [cache] - Timestamped in-memory store with freshness checks and
// oldest-first eviction.
//
// [httputil] - Single-attempt request execution, retry policy and an
// optional circuit breaker.
//
// [integrations] - The generic fetch state machine. [integrations/footpredict]
// builds the typed backend client on top of it.
//
// [observability] - Hook interfaces for cache, HTTP and resilience events.
//
// [refresh] - Periodic refresh of watched data with pause and resume.
//
// [stubserver] - Simulated backend with fault injection for tests and demos.
//
// # Testing
//
//	go test ./...                    # All tests
//	go test ./pkg/integrations/...   # Client state machine
//
// [config]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/errors
// [cache]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/httputil
// [integrations]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/integrations
// [integrations/footpredict]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/integrations/footpredict
// [observability]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/observability
// [refresh]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/refresh
// [stubserver]: https://pkg.go.dev/github.com/matzehuels/footpredict/pkg/stubserver
package pkg
