package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/footpredict/pkg/errors"
	"github.com/matzehuels/footpredict/pkg/stubserver"
)

// startBackend serves a seeded stub backend for the duration of the test.
func startBackend(t *testing.T, opts stubserver.Options) (*stubserver.Server, string) {
	t.Helper()
	opts.Seed = 3
	srv := stubserver.New(opts)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Setenv("FOOTPREDICT_BASE_DELAY", "1ms")
	return srv, ts.URL
}

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

// execute runs the CLI with args and returns what it printed, without
// terminal styling.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return ansi.ReplaceAllString(out.String(), ""), err
}

func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(out), &v), out)
	return v
}

func TestHealthCommand(t *testing.T) {
	_, url := startBackend(t, stubserver.Options{})

	out, err := execute(t, "--base-url", url, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend is healthy")
	assert.Contains(t, out, url)
	assert.Contains(t, out, iconFresh)
}

func TestLeaguesCommandJSON(t *testing.T) {
	_, url := startBackend(t, stubserver.Options{})

	out, err := execute(t, "--base-url", url, "--json", "leagues")
	require.NoError(t, err)

	v := decodeOutput(t, out)
	assert.Len(t, v["leagues"], 5)
	meta := v["meta"].(map[string]any)
	assert.Equal(t, "network_success", meta["state"])
	assert.Equal(t, "backend", meta["source"])
}

func TestTeamsCommandJoinsArgs(t *testing.T) {
	srv, url := startBackend(t, stubserver.Options{})

	out, err := execute(t, "--base-url", url, "teams", "La", "Liga")
	require.NoError(t, err)
	assert.Contains(t, out, "4 teams in La Liga")
	assert.Contains(t, out, "Barcelona")
	assert.Equal(t, 1, srv.Hits(stubserver.RouteTeams))
}

func TestTeamsCommandRequiresLeague(t *testing.T) {
	_, url := startBackend(t, stubserver.Options{})

	_, err := execute(t, "--base-url", url, "teams")
	assert.Error(t, err)
}

func TestLiveCommand(t *testing.T) {
	_, url := startBackend(t, stubserver.Options{})

	out, err := execute(t, "--base-url", url, "live")
	require.NoError(t, err)
	assert.Contains(t, out, "4 live matches")
}

func TestLiveCommandJSON(t *testing.T) {
	_, url := startBackend(t, stubserver.Options{})

	out, err := execute(t, "--base-url", url, "--json", "live", "--refresh")
	require.NoError(t, err)

	v := decodeOutput(t, out)
	assert.Len(t, v["matches"], 4)
}

func TestPredictCommand(t *testing.T) {
	srv, url := startBackend(t, stubserver.Options{})

	out, err := execute(t, "--base-url", url, "predict", "--home", "Arsenal", "--away", "Chelsea", "--league", "Premier League")
	require.NoError(t, err)
	assert.Contains(t, out, "Arsenal vs Chelsea")
	assert.Contains(t, out, "Key factors")
	assert.NotContains(t, out, "placeholder")
	assert.Equal(t, 1, srv.Hits(stubserver.RoutePredict))
}

func TestPredictCommandFallback(t *testing.T) {
	_, url := startBackend(t, stubserver.Options{FailFirst: 100})

	out, err := execute(t, "--base-url", url, "--json", "predict", "--home", "Arsenal", "--away", "Chelsea", "--league", "Premier League")
	require.NoError(t, err)

	v := decodeOutput(t, out)
	assert.Equal(t, "Home Win", v["prediction"])
	meta := v["meta"].(map[string]any)
	assert.Equal(t, "fallback", meta["source"])
	assert.NotEmpty(t, meta["error"])
}

func TestPredictCommandMissingFlags(t *testing.T) {
	srv, url := startBackend(t, stubserver.Options{})

	_, err := execute(t, "--base-url", url, "predict", "--home", "Arsenal")
	assert.ErrorContains(t, err, "required flag")
	assert.Zero(t, srv.TotalHits())
}

func TestPredictCommandInvalidInput(t *testing.T) {
	srv, url := startBackend(t, stubserver.Options{})

	_, err := execute(t, "--base-url", url, "predict", "--home", "Arsenal", "--away", "Arsenal", "--league", "Premier League")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "error: %v", err)
	assert.Zero(t, srv.TotalHits())
}

func TestLeaguesCommandExhausted(t *testing.T) {
	srv, url := startBackend(t, stubserver.Options{FailFirst: 100})

	_, err := execute(t, "--base-url", url, "leagues")
	require.Error(t, err)
	assert.Equal(t, "leagues failed after 3 attempts", errorMessage(err))
	assert.Equal(t, 3, srv.Hits(stubserver.RouteLeagues))
}

func TestConfigFile(t *testing.T) {
	srv, url := startBackend(t, stubserver.Options{FailFirst: 100})

	path := filepath.Join(t.TempDir(), "footpredict.toml")
	require.NoError(t, os.WriteFile(path, []byte("base_url = \""+url+"\"\nmax_attempts = 2\n"), 0o600))

	_, err := execute(t, "--config", path, "leagues")
	require.Error(t, err)
	assert.Equal(t, 2, srv.Hits(stubserver.RouteLeagues))
}

func TestInvalidBaseURL(t *testing.T) {
	_, err := execute(t, "--base-url", "not a url", "health")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "error: %v", err)
}

func TestBaseURLAndProductionExclusive(t *testing.T) {
	_, err := execute(t, "--base-url", "http://localhost:1", "--production", "health")
	assert.Error(t, err)
}

func TestRenderMeta(t *testing.T) {
	tests := []struct {
		name string
		args []string
		opts stubserver.Options
		want string
	}{
		{"fresh", []string{"leagues"}, stubserver.Options{}, iconFresh},
		{"placeholder", []string{"predict", "--home", "A", "--away", "B", "--league", "C"}, stubserver.Options{FailFirst: 100}, iconFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := startBackend(t, tt.opts)
			out, err := execute(t, append([]string{"--base-url", url}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}
