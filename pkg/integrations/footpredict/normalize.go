package footpredict

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/footpredict/pkg/errors"
)

// Backends in the wild disagree on envelopes and key spelling. The decoders
// below accept every shape seen so far and turn anything else into a
// PARSE_ERROR.

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func parseError(op string, err error) error {
	return errors.Wrap(errors.ErrCodeParse, err, "decode %s", op)
}

// unwrapList returns the elements of data, which is either a JSON array or
// an object holding the array under one of keys.
func unwrapList(data []byte, keys ...string) ([]jsoniter.RawMessage, map[string]jsoniter.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("empty body")
	}

	switch data[0] {
	case '[':
		var list []jsoniter.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, nil, err
		}
		return list, nil, nil
	case '{':
		var env map[string]jsoniter.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, nil, err
		}
		for _, k := range keys {
			raw, ok := env[k]
			if !ok {
				continue
			}
			var list []jsoniter.RawMessage
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, nil, fmt.Errorf("field %q: %w", k, err)
			}
			return list, env, nil
		}
		return nil, nil, fmt.Errorf("no %s field", strings.Join(keys, " or "))
	default:
		return nil, nil, fmt.Errorf("expected array or object, got %q", data[0])
	}
}

func decodeHealth(data []byte) (*Health, error) {
	var h Health
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, parseError("health", err)
	}
	if h.Status == "" {
		return nil, parseError("health", fmt.Errorf("missing status"))
	}
	h.Raw = data
	return &h, nil
}

// leagueEntry accepts a bare name or a league object.
type leagueEntry League

func (e *leagueEntry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Name)
	}
	var raw struct {
		ID      flexString `json:"id"`
		Name    string     `json:"name"`
		Country string     `json:"country"`
		Teams   int        `json:"teams"`
		Level   string     `json:"level"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, _ := strconv.Atoi(string(raw.ID))
	*e = leagueEntry{ID: id, Name: raw.Name, Country: raw.Country, Teams: raw.Teams, Level: raw.Level}
	return nil
}

func decodeLeagues(data []byte) (*Leagues, error) {
	items, _, err := unwrapList(data, "leagues", "data")
	if err != nil {
		return nil, parseError("leagues", err)
	}

	out := &Leagues{Leagues: make([]League, 0, len(items)), Raw: data}
	for i, item := range items {
		var e leagueEntry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, parseError("leagues", fmt.Errorf("league %d: %w", i, err))
		}
		if e.Name == "" {
			return nil, parseError("leagues", fmt.Errorf("league %d has no name", i))
		}
		out.Leagues = append(out.Leagues, League(e))
	}
	return out, nil
}

// teamEntry accepts a bare name or an object with a name.
type teamEntry string

func (e *teamEntry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, (*string)(e))
	}
	var raw struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = teamEntry(raw.Name)
	return nil
}

func decodeTeams(data []byte, league string) (*Teams, error) {
	items, env, err := unwrapList(data, "teams", "data")
	if err != nil {
		return nil, parseError("teams", err)
	}

	out := &Teams{League: league, Teams: make([]string, 0, len(items)), Raw: data}
	if raw, ok := env["league"]; ok {
		var name string
		if json.Unmarshal(raw, &name) == nil && name != "" {
			out.League = name
		}
	}
	for i, item := range items {
		var e teamEntry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, parseError("teams", fmt.Errorf("team %d: %w", i, err))
		}
		if e == "" {
			return nil, parseError("teams", fmt.Errorf("team %d has no name", i))
		}
		out.Teams = append(out.Teams, string(e))
	}
	return out, nil
}

// flexString holds a JSON string or number as text.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		var n jsoniter.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*s = flexString(n.String())
	default:
		return fmt.Errorf("expected string or number, got %.20s", data)
	}
	return nil
}

// flexMinute holds a match minute given as 45, "45", "45'" or "90+2".
// Labels without a number such as "HT" decode to zero.
type flexMinute int

func (m *flexMinute) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(string(s)), "'"))
	if base, extra, ok := strings.Cut(text, "+"); ok {
		b, err1 := strconv.Atoi(strings.TrimSpace(base))
		e, err2 := strconv.Atoi(strings.TrimSpace(extra))
		if err1 == nil && err2 == nil {
			*m = flexMinute(b + e)
			return nil
		}
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		*m = flexMinute(int(f))
		return nil
	}
	*m = 0
	return nil
}

type rawEvent struct {
	Type   string     `json:"type"`
	Minute flexMinute `json:"minute"`
	Player string     `json:"player"`
}

type rawMatch struct {
	ID        flexString  `json:"id"`
	HomeSnake string      `json:"home_team"`
	HomeCamel string      `json:"homeTeam"`
	Home      string      `json:"home"`
	AwaySnake string      `json:"away_team"`
	AwayCamel string      `json:"awayTeam"`
	Away      string      `json:"away"`
	League    string      `json:"league"`
	Score     string      `json:"score"`
	HomeScore *flexString `json:"home_score"`
	AwayScore *flexString `json:"away_score"`
	Minute    flexMinute  `json:"minute"`
	Status    string      `json:"status"`
	Venue     string      `json:"venue"`
	Timestamp string      `json:"timestamp"`
	Events    []rawEvent  `json:"events"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r rawMatch) match() Match {
	m := Match{
		ID:        string(r.ID),
		HomeTeam:  firstNonEmpty(r.HomeSnake, r.HomeCamel, r.Home),
		AwayTeam:  firstNonEmpty(r.AwaySnake, r.AwayCamel, r.Away),
		League:    r.League,
		Score:     r.Score,
		Minute:    int(r.Minute),
		Status:    r.Status,
		Venue:     r.Venue,
		Timestamp: r.Timestamp,
	}
	if m.Score == "" && r.HomeScore != nil && r.AwayScore != nil {
		m.Score = string(*r.HomeScore) + "-" + string(*r.AwayScore)
	}
	if m.Score == "" {
		m.Score = "0-0"
	}
	for _, e := range r.Events {
		m.Events = append(m.Events, Event{Type: e.Type, Minute: int(e.Minute), Player: e.Player})
	}
	return m
}

func decodeLiveMatches(data []byte) (*LiveMatches, error) {
	items, _, err := unwrapList(data, "live_matches", "liveMatches", "matches", "data")
	if err != nil {
		return nil, parseError("live matches", err)
	}

	out := &LiveMatches{Matches: make([]Match, 0, len(items)), Raw: data}
	for i, item := range items {
		var r rawMatch
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, parseError("live matches", fmt.Errorf("match %d: %w", i, err))
		}
		m := r.match()
		if m.HomeTeam == "" || m.AwayTeam == "" {
			return nil, parseError("live matches", fmt.Errorf("match %d is missing a team", i))
		}
		out.Matches = append(out.Matches, m)
	}
	return out, nil
}

func decodePrediction(data []byte) (*Prediction, error) {
	var p Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, parseError("prediction", err)
	}
	if p.Prediction == "" {
		return nil, parseError("prediction", fmt.Errorf("missing prediction"))
	}
	p.Raw = data
	return &p, nil
}

// check adapts a decoder to the payload check of a fetch.
func check[T any](decode func([]byte) (T, error)) func([]byte) error {
	return func(data []byte) error {
		_, err := decode(data)
		return err
	}
}
