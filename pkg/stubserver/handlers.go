package stubserver

import (
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
)

type league struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Teams   int    `json:"teams"`
	Level   string `json:"level"`
}

var leagues = []league{
	{1, "Premier League", "England", 20, "Top"},
	{2, "La Liga", "Spain", 20, "Top"},
	{3, "Serie A", "Italy", 20, "Top"},
	{4, "Bundesliga", "Germany", 18, "Top"},
	{5, "Ligue 1", "France", 18, "Top"},
}

const defaultLeagueKey = "premier_league"

var sampleTeams = map[string][]string{
	"premier_league": {"Arsenal", "Chelsea", "Liverpool", "Man City", "Man United", "Tottenham"},
	"la_liga":        {"Barcelona", "Real Madrid", "Atletico Madrid", "Sevilla"},
	"serie_a":        {"Juventus", "AC Milan", "Inter Milan", "Napoli"},
}

var liveLeagues = []string{"Premier League", "La Liga", "Serie A"}

var (
	eliteTeams  = []string{"man city", "arsenal", "liverpool", "real madrid", "barcelona", "bayern"}
	strongTeams = []string{"chelsea", "man united", "tottenham", "atletico", "inter", "ac milan", "juventus", "napoli"}
)

// LeagueKey turns a league name into its lookup key, e.g. "La Liga" into
// "la_liga".
func LeagueKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// TeamsFor returns the teams served for league. Unknown leagues get the
// Premier League teams.
func TeamsFor(league string) []string {
	if teams, ok := sampleTeams[LeagueKey(league)]; ok {
		return teams
	}
	return sampleTeams[defaultLeagueKey]
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "FootPredict AI API is running",
		"status":    "active",
		"version":   "1.0.0",
		"timestamp": timestamp(s.now()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": timestamp(s.now()),
	})
}

func (s *Server) handleLeagues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"leagues": leagues})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "league")
	writeJSON(w, http.StatusOK, map[string]any{
		"league": name,
		"teams":  TeamsFor(name),
	})
}

type liveMatch struct {
	ID        int    `json:"id"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	League    string `json:"league"`
	Score     string `json:"score"`
	Minute    int    `json:"minute"`
	Status    string `json:"status"`
	Venue     string `json:"venue"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleLiveMatches(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	matches := make([]liveMatch, 4)
	for i := range matches {
		name := liveLeagues[s.rng.IntN(len(liveLeagues))]
		teams := TeamsFor(name)
		home := teams[s.rng.IntN(len(teams))]
		away := home
		for away == home {
			away = teams[s.rng.IntN(len(teams))]
		}
		matches[i] = liveMatch{
			ID:        i + 1,
			HomeTeam:  home,
			AwayTeam:  away,
			League:    name,
			Score:     fmt.Sprintf("%d-%d", s.rng.IntN(4), s.rng.IntN(3)),
			Minute:    1 + s.rng.IntN(90),
			Status:    "LIVE",
			Venue:     home + " Stadium",
			Timestamp: timestamp(s.now()),
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"live_matches": matches})
}

type predictionRequest struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	League   string `json:"league"`
}

type prediction struct {
	Match         predictionRequest  `json:"match"`
	Prediction    string             `json:"prediction"`
	Confidence    int                `json:"confidence"`
	Probabilities map[string]int     `json:"probabilities"`
	Analysis      predictionAnalysis `json:"analysis"`
	Timestamp     string             `json:"timestamp"`
}

type predictionAnalysis struct {
	ExpectedGoalsHome  float64  `json:"expected_goals_home"`
	ExpectedGoalsAway  float64  `json:"expected_goals_away"`
	BothTeamsScoreProb int      `json:"both_teams_score_prob"`
	Over25GoalsProb    int      `json:"over_2_5_goals_prob"`
	KeyFactors         []string `json:"key_factors"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.HomeTeam == "" || req.AwayTeam == "" || req.League == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "home_team, away_team and league are required"})
		return
	}

	s.mu.Lock()
	p := s.predict(req)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, p)
}

// predict derives outcome probabilities from team strength, a random home
// advantage and a random form swing. The three percentages always sum to
// 100. Callers hold mu.
func (s *Server) predict(req predictionRequest) prediction {
	home := s.strength(req.HomeTeam)
	away := s.strength(req.AwayTeam)

	baseHome := home / (home + away) * 100
	baseAway := away / (home + away) * 100
	advantage := s.uniform(5, 15)
	form := s.uniform(-10, 10)

	homeWin := clamp(baseHome+advantage+form, 15, 85)
	awayWin := clamp(baseAway-advantage, 10, 80)
	draw := 100 - homeWin - awayWin

	homeWin = clamp(homeWin, 20, 80)
	awayWin = clamp(awayWin, 15, 70)
	draw = clamp(draw, 10, 40)

	total := homeWin + awayWin + draw
	h := int(homeWin / total * 100)
	a := int(awayWin / total * 100)
	d := 100 - h - a

	var label string
	var confidence int
	switch {
	case h > a && h > d:
		label, confidence = req.HomeTeam+" Win", h
	case a > h && a > d:
		label, confidence = req.AwayTeam+" Win", a
	default:
		label, confidence = "Draw", d
	}

	formLabel := "Poor"
	if form > 0 {
		formLabel = "Good"
	}

	return prediction{
		Match:      req,
		Prediction: label,
		Confidence: confidence,
		Probabilities: map[string]int{
			"home_win": h,
			"draw":     d,
			"away_win": a,
		},
		Analysis: predictionAnalysis{
			ExpectedGoalsHome:  round1(s.uniform(1.2, 3.2)),
			ExpectedGoalsAway:  round1(s.uniform(0.8, 2.8)),
			BothTeamsScoreProb: 45 + s.rng.IntN(41),
			Over25GoalsProb:    40 + s.rng.IntN(41),
			KeyFactors: []string{
				fmt.Sprintf("%s has %.1f%% home advantage", req.HomeTeam, advantage),
				"Recent form: " + formLabel,
				fmt.Sprintf("Team strength: %.1f vs %.1f", home, away),
			},
		},
		Timestamp: timestamp(s.now()),
	}
}

func (s *Server) strength(team string) float64 {
	name := strings.ToLower(team)
	contains := func(list []string) bool {
		return slices.ContainsFunc(list, func(t string) bool { return strings.Contains(name, t) })
	}
	switch {
	case contains(eliteTeams):
		return s.uniform(0.8, 0.95)
	case contains(strongTeams):
		return s.uniform(0.6, 0.8)
	default:
		return s.uniform(0.4, 0.6)
	}
}

func (s *Server) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
