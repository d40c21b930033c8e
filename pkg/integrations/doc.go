// Package integrations provides the resilient HTTP layer for the football
// prediction backend.
//
// # Overview
//
// [Client] turns a logical operation ([Call]) into a path, runs it through
// the retry policy, and caches successful payloads. Domain clients embed it
// and decode the returned bytes:
//
//   - [footpredict]: leagues, teams, live matches and predictions
//
// # Client Pattern
//
// Domain clients follow the same pattern:
//
//	client, err := footpredict.NewClient(cfg)
//	teams, err := client.GetTeams(ctx, "La Liga")
//
// Every fetch ends in one of three states, reported on [Result]:
//
//   - [CacheHit]: a fresh entry answered without a request
//   - [NetworkSuccess]: an attempt succeeded and was cached
//   - [StaleFallback]: attempts failed but an older entry existed
//
// When no state applies the call fails with an ATTEMPTS_EXHAUSTED error
// wrapping the last attempt's TIMEOUT, NETWORK_ERROR, HTTP_STATUS or
// PARSE_ERROR.
//
// # Shared Infrastructure
//
// Attempts are executed by [httputil.Executor] under [httputil.Policy], and
// payloads are stored in a [cache.Cache]. Concurrent fetches of the same key
// are coalesced into one attempt sequence.
//
// [footpredict]: github.com/matzehuels/footpredict/pkg/integrations/footpredict
// [httputil.Executor]: github.com/matzehuels/footpredict/pkg/httputil.Executor
// [httputil.Policy]: github.com/matzehuels/footpredict/pkg/httputil.Policy
// [cache.Cache]: github.com/matzehuels/footpredict/pkg/cache.Cache
package integrations
