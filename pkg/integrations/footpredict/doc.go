// Package footpredict provides a client for the football prediction backend.
//
// # Usage
//
//	client, err := footpredict.NewClient(cfg, integrations.WithLogger(logger))
//	teams, err := client.GetTeams(ctx, "La Liga")
//	p, err := client.PredictMatch(ctx, footpredict.PredictionRequest{
//	    HomeTeam: "Arsenal",
//	    AwayTeam: "Chelsea",
//	    League:   "Premier League",
//	})
//
// Every response embeds [Meta], which says whether the data came from the
// cache, the network or a stale fallback. Predictions are never cached and
// degrade to [FallbackPrediction] when the backend is unavailable; check
// [Prediction.Fallback] before presenting one as real.
//
// # Response Shapes
//
// The decoders accept both bare lists and envelopes ({"leagues": [...]},
// {"live_matches": [...]}), snake and camel case team keys, and minutes
// given as numbers or strings like "45'". Payloads that fit none of these
// fail with a PARSE_ERROR and are not cached.
package footpredict
