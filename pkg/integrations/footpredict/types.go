package footpredict

import (
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/footpredict/pkg/errors"
	"github.com/matzehuels/footpredict/pkg/integrations"
)

// Result sources.
const (
	SourceBackend  = "backend"
	SourceFallback = "fallback"
)

// Meta describes where a response came from.
//
// Err is set only on fallback predictions and holds the failure that caused
// the placeholder to be returned.
type Meta struct {
	State    string    `json:"state"`
	Stale    bool      `json:"stale"`
	StoredAt time.Time `json:"stored_at"`
	Attempts int       `json:"attempts"`
	Source   string    `json:"source"`
	Error    string    `json:"error,omitempty"`
	Err      error     `json:"-"`
}

func metaFrom(res integrations.Result) Meta {
	return Meta{
		State:    res.State.String(),
		Stale:    res.Stale(),
		StoredAt: res.StoredAt,
		Attempts: res.Attempts,
		Source:   SourceBackend,
	}
}

// Health is the backend liveness report.
type Health struct {
	Meta      `json:"meta"`
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp,omitempty"`
	Raw       jsoniter.RawMessage `json:"-"`
}

// Healthy reports whether the backend described itself as healthy.
func (h *Health) Healthy() bool {
	return h.Status == "healthy" || h.Status == "ok"
}

// League is a competition offered by the backend. Backends that only list
// names produce Leagues with just Name set.
type League struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	Teams   int    `json:"teams,omitempty"`
	Level   string `json:"level,omitempty"`
}

// Leagues is the response of [Client.GetLeagues].
type Leagues struct {
	Meta    `json:"meta"`
	Leagues []League            `json:"leagues"`
	Raw     jsoniter.RawMessage `json:"-"`
}

// Names returns the league names in order.
func (l *Leagues) Names() []string {
	names := make([]string, len(l.Leagues))
	for i, lg := range l.Leagues {
		names[i] = lg.Name
	}
	return names
}

// Teams is the response of [Client.GetTeams].
type Teams struct {
	Meta   `json:"meta"`
	League string              `json:"league"`
	Teams  []string            `json:"teams"`
	Raw    jsoniter.RawMessage `json:"-"`
}

// Event is something that happened during a match, such as a goal.
type Event struct {
	Type   string `json:"type"`
	Minute int    `json:"minute"`
	Player string `json:"player,omitempty"`
}

// Match is a live fixture.
type Match struct {
	ID        string  `json:"id"`
	HomeTeam  string  `json:"home_team"`
	AwayTeam  string  `json:"away_team"`
	League    string  `json:"league,omitempty"`
	Score     string  `json:"score"`
	Minute    int     `json:"minute"`
	Status    string  `json:"status,omitempty"`
	Venue     string  `json:"venue,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Events    []Event `json:"events,omitempty"`
}

// LiveMatches is the response of [Client.GetLiveMatches].
type LiveMatches struct {
	Meta    `json:"meta"`
	Matches []Match             `json:"matches"`
	Raw     jsoniter.RawMessage `json:"-"`
}

// PredictionRequest identifies the fixture to predict. All fields are
// required.
type PredictionRequest struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	League   string `json:"league"`
}

// Validate reports the first missing or unusable field.
func (r PredictionRequest) Validate() error {
	if err := errors.ValidateName("league", r.League); err != nil {
		return err
	}
	if err := errors.ValidateName("home team", r.HomeTeam); err != nil {
		return err
	}
	if err := errors.ValidateName("away team", r.AwayTeam); err != nil {
		return err
	}
	if r.HomeTeam == r.AwayTeam {
		return errors.New(errors.ErrCodeInvalidInput, "home and away team cannot be the same")
	}
	return nil
}

// orDefault fills the fields the backend left empty from req.
func (r PredictionRequest) orDefault(req PredictionRequest) PredictionRequest {
	if r.HomeTeam == "" {
		r.HomeTeam = req.HomeTeam
	}
	if r.AwayTeam == "" {
		r.AwayTeam = req.AwayTeam
	}
	if r.League == "" {
		r.League = req.League
	}
	return r
}

// Probabilities are outcome percentages.
type Probabilities struct {
	HomeWin float64 `json:"home_win"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"away_win"`
}

// Sum returns the total of the three outcomes, normally 100.
func (p Probabilities) Sum() float64 {
	return p.HomeWin + p.Draw + p.AwayWin
}

// Balanced reports whether the outcomes add up to 100 within tolerance.
func (p Probabilities) Balanced(tolerance float64) bool {
	return math.Abs(p.Sum()-100) <= tolerance
}

// Analysis holds the supporting numbers of a prediction.
type Analysis struct {
	ExpectedGoalsHome  float64  `json:"expected_goals_home"`
	ExpectedGoalsAway  float64  `json:"expected_goals_away"`
	BothTeamsScoreProb float64  `json:"both_teams_score_prob"`
	Over25GoalsProb    float64  `json:"over_2_5_goals_prob"`
	KeyFactors         []string `json:"key_factors"`
}

// Prediction is the response of [Client.PredictMatch]. Source is
// [SourceFallback] when the backend could not be used.
type Prediction struct {
	Meta          `json:"meta"`
	Match         PredictionRequest   `json:"match"`
	Prediction    string              `json:"prediction"`
	Confidence    float64             `json:"confidence"`
	Probabilities Probabilities       `json:"probabilities"`
	Analysis      Analysis            `json:"analysis"`
	Timestamp     string              `json:"timestamp"`
	Raw           jsoniter.RawMessage `json:"-"`
}

// Fallback reports whether p is the local placeholder.
func (p *Prediction) Fallback() bool { return p.Source == SourceFallback }
