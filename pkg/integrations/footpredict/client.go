package footpredict

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/matzehuels/footpredict/pkg/config"
	"github.com/matzehuels/footpredict/pkg/errors"
	"github.com/matzehuels/footpredict/pkg/integrations"
)

// Client provides access to the football prediction backend.
//
// Health, leagues, teams and live matches are cached for the configured TTL
// and fall back to an expired copy when the backend is unavailable.
// Predictions are never cached; when the backend cannot produce one,
// [Client.PredictMatch] returns a placeholder marked with [SourceFallback].
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
}

// NewClient creates a client for the backend described by cfg.
func NewClient(cfg config.Config, opts ...integrations.Option) (*Client, error) {
	base, err := integrations.NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: base}, nil
}

// CheckHealth asks the backend whether it is up.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	res, err := c.Fetch(ctx, integrations.Call{Op: config.OpHealth, Check: check(decodeHealth)})
	if err != nil {
		return nil, err
	}
	h, err := decodeHealth(res.Payload)
	if err != nil {
		return nil, err
	}
	h.Meta = metaFrom(res)
	return h, nil
}

// GetLeagues lists the leagues the backend can predict.
func (c *Client) GetLeagues(ctx context.Context) (*Leagues, error) {
	res, err := c.Fetch(ctx, integrations.Call{Op: config.OpLeagues, Check: check(decodeLeagues)})
	if err != nil {
		return nil, err
	}
	l, err := decodeLeagues(res.Payload)
	if err != nil {
		return nil, err
	}
	l.Meta = metaFrom(res)
	return l, nil
}

// GetTeams lists the teams of league. The league name is sent as a single
// escaped path segment and must pass [errors.ValidateName].
func (c *Client) GetTeams(ctx context.Context, league string) (*Teams, error) {
	if err := errors.ValidateName("league", league); err != nil {
		return nil, err
	}

	decode := func(data []byte) (*Teams, error) { return decodeTeams(data, league) }
	res, err := c.Fetch(ctx, integrations.Call{
		Op:     config.OpTeams,
		Params: map[string]string{"league": league},
		Check:  check(decode),
	})
	if err != nil {
		return nil, err
	}
	t, err := decode(res.Payload)
	if err != nil {
		return nil, err
	}
	t.Meta = metaFrom(res)
	return t, nil
}

// GetLiveMatches lists the matches in progress. When forceRefresh is true
// the cached copy is skipped, but the fresh result still replaces it.
func (c *Client) GetLiveMatches(ctx context.Context, forceRefresh bool) (*LiveMatches, error) {
	res, err := c.Fetch(ctx, integrations.Call{
		Op:      config.OpLiveMatches,
		Refresh: forceRefresh,
		Check:   check(decodeLiveMatches),
	})
	if err != nil {
		return nil, err
	}
	m, err := decodeLiveMatches(res.Payload)
	if err != nil {
		return nil, err
	}
	m.Meta = metaFrom(res)
	return m, nil
}

// PredictMatch asks the backend to predict req.
//
// Invalid requests fail with INVALID_INPUT and cancellation of ctx is
// returned as is. Any other failure yields the placeholder from
// [FallbackPrediction] with Meta.Err set to the cause.
func (c *Client) PredictMatch(ctx context.Context, req PredictionRequest) (*Prediction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := c.Fetch(ctx, integrations.Call{
		Op:     config.OpPredict,
		Method: http.MethodPost,
		Body:   req,
		Check:  check(decodePrediction),
	})
	if err == nil {
		var p *Prediction
		if p, err = decodePrediction(res.Payload); err == nil {
			p.Match = p.Match.orDefault(req)
			p.Meta = metaFrom(res)
			return p, nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	c.Logger().Warn("prediction unavailable, using placeholder",
		"home", req.HomeTeam, "away", req.AwayTeam, "err", errors.UserMessage(err))
	c.Hooks().OnFallback(ctx, config.OpPredict)
	return FallbackPrediction(req, c.Now(), err), nil
}

// FallbackPrediction builds the placeholder returned when the backend
// cannot predict req. The numbers are fixed so that callers can recognize
// and label them.
func FallbackPrediction(req PredictionRequest, now time.Time, cause error) *Prediction {
	p := &Prediction{
		Match:      req,
		Prediction: "Home Win",
		Confidence: 65,
		Probabilities: Probabilities{
			HomeWin: 65,
			Draw:    20,
			AwayWin: 15,
		},
		Analysis: Analysis{
			ExpectedGoalsHome:  2.1,
			ExpectedGoalsAway:  0.8,
			BothTeamsScoreProb: 45,
			Over25GoalsProb:    60,
			KeyFactors: []string{
				fmt.Sprintf("%s has strong home form", req.HomeTeam),
				fmt.Sprintf("%s poor away record", req.AwayTeam),
				"Demo data - Backend unavailable",
			},
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	p.Meta = Meta{State: SourceFallback, Source: SourceFallback, StoredAt: now, Err: cause}
	if cause != nil {
		p.Meta.Error = cause.Error()
	}
	return p
}
