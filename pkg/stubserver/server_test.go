package stubserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, ts *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func postPredict(t *testing.T, ts *httptest.Server, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+RoutePredict, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts := httptest.NewServer(New(Options{Seed: 1, Now: func() time.Time { return fixed }}))
	defer ts.Close()

	status, body := get(t, ts, RouteHealth)
	require.Equal(t, http.StatusOK, status)

	var h struct{ Status, Timestamp string }
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "2024-05-01T12:00:00.000000", h.Timestamp)
}

func TestLeagues(t *testing.T) {
	ts := httptest.NewServer(New(Options{Seed: 1}))
	defer ts.Close()

	status, body := get(t, ts, RouteLeagues)
	require.Equal(t, http.StatusOK, status)

	var resp struct{ Leagues []league }
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Leagues, 5)
	assert.Equal(t, "Premier League", resp.Leagues[0].Name)
	assert.Equal(t, "France", resp.Leagues[4].Country)
}

func TestTeams(t *testing.T) {
	ts := httptest.NewServer(New(Options{Seed: 1}))
	defer ts.Close()

	tests := []struct {
		path   string
		league string
		first  string
	}{
		{"/api/teams/La%20Liga", "La Liga", "Barcelona"},
		{"/api/teams/serie_a", "serie_a", "Juventus"},
		{"/api/teams/Eredivisie", "Eredivisie", "Arsenal"},
	}
	for _, tt := range tests {
		t.Run(tt.league, func(t *testing.T) {
			status, body := get(t, ts, tt.path)
			require.Equal(t, http.StatusOK, status)

			var resp struct {
				League string
				Teams  []string
			}
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, tt.league, resp.League)
			require.NotEmpty(t, resp.Teams)
			assert.Equal(t, tt.first, resp.Teams[0])
		})
	}
}

func TestLiveMatchesDeterministic(t *testing.T) {
	fixed := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	a := httptest.NewServer(New(Options{Seed: 42, Now: fixed}))
	defer a.Close()
	b := httptest.NewServer(New(Options{Seed: 42, Now: fixed}))
	defer b.Close()

	_, bodyA := get(t, a, RouteLiveMatches)
	_, bodyB := get(t, b, RouteLiveMatches)
	assert.JSONEq(t, string(bodyA), string(bodyB))

	var resp struct {
		LiveMatches []liveMatch `json:"live_matches"`
	}
	require.NoError(t, json.Unmarshal(bodyA, &resp))
	require.Len(t, resp.LiveMatches, 4)
	for i, m := range resp.LiveMatches {
		assert.Equal(t, i+1, m.ID)
		assert.NotEqual(t, m.HomeTeam, m.AwayTeam)
		assert.Contains(t, TeamsFor(m.League), m.HomeTeam)
		assert.GreaterOrEqual(t, m.Minute, 1)
		assert.LessOrEqual(t, m.Minute, 90)
		assert.Equal(t, "LIVE", m.Status)
	}
}

func TestPredictProbabilitiesSumTo100(t *testing.T) {
	ts := httptest.NewServer(New(Options{Seed: 7}))
	defer ts.Close()

	pairs := [][2]string{
		{"Arsenal", "Chelsea"},
		{"Real Madrid", "Sevilla"},
		{"Unknown FC", "Man City"},
		{"Napoli", "Inter Milan"},
	}
	for _, pair := range pairs {
		for range 20 {
			status, body := postPredict(t, ts, `{"home_team":"`+pair[0]+`","away_team":"`+pair[1]+`","league":"Any"}`)
			require.Equal(t, http.StatusOK, status)

			var p prediction
			require.NoError(t, json.Unmarshal(body, &p))
			sum := p.Probabilities["home_win"] + p.Probabilities["draw"] + p.Probabilities["away_win"]
			assert.Equal(t, 100, sum, "%s vs %s: %v", pair[0], pair[1], p.Probabilities)
			assert.Len(t, p.Analysis.KeyFactors, 3)
			assert.Equal(t, pair[0], p.Match.HomeTeam)
		}
	}
}

func TestPredictRejectsIncompleteRequest(t *testing.T) {
	ts := httptest.NewServer(New(Options{Seed: 1}))
	defer ts.Close()

	status, _ := postPredict(t, ts, `{"home_team":"Arsenal"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = postPredict(t, ts, `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestFailFirst(t *testing.T) {
	srv := New(Options{Seed: 1, FailFirst: 2, FailStatus: http.StatusBadGateway})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	status, _ := get(t, ts, RouteLeagues)
	assert.Equal(t, http.StatusBadGateway, status)
	status, _ = get(t, ts, "/api/teams/La%20Liga")
	assert.Equal(t, http.StatusBadGateway, status)
	status, _ = get(t, ts, RouteLeagues)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, 2, srv.Hits(RouteLeagues))
	assert.Equal(t, 1, srv.Hits(RouteTeams))
	assert.Equal(t, 3, srv.TotalHits())

	srv.FailNext(1, http.StatusInternalServerError)
	status, _ = get(t, ts, RouteHealth)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestMalformed(t *testing.T) {
	srv := New(Options{Seed: 1, Malformed: true})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	status, body := get(t, ts, RouteLeagues)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, json.Valid(body))

	srv.SetMalformed(false)
	_, body = get(t, ts, RouteLeagues)
	assert.True(t, json.Valid(body))
}

func TestDelay(t *testing.T) {
	srv := New(Options{Seed: 1})
	srv.SetDelay(50 * time.Millisecond)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	start := time.Now()
	get(t, ts, RouteHealth)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestUnknownRoute(t *testing.T) {
	srv := New(Options{Seed: 1})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	status, _ := get(t, ts, "/api/standings")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 0, srv.TotalHits())
}

func TestLeagueKey(t *testing.T) {
	assert.Equal(t, "la_liga", LeagueKey("La Liga"))
	assert.Equal(t, "premier_league", LeagueKey("Premier League"))
}
