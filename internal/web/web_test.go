package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/topspot/internal/auth"
	"github.com/desertthunder/topspot/internal/repositories"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/tasks"
	tu "github.com/desertthunder/topspot/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	app     *App
	srv     *httptest.Server
	client  *http.Client
	spotify *tu.FakeSpotify
}

func newHarness(t *testing.T, available int) *harness {
	t.Helper()

	spotify := tu.NewFakeSpotify(t, available)
	accounts := tu.NewFakeAccounts(t)
	cfg := tu.TestConfig(spotify.URL, accounts.URL)

	client := services.NewSpotifyClient(services.WithBaseURL(spotify.URL))
	app, err := New(Options{
		Auth:       auth.ConfigFrom(cfg),
		Sessions:   repositories.NewSessionRepository(tu.NewTestDB(t)),
		Service:    client,
		Aggregator: tasks.NewAggregator(client, tasks.AggregatorOpts{}),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &harness{
		app: app,
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		spotify: spotify,
	}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// login starts a login and returns the state from the provider redirect.
func (h *harness) login(t *testing.T) string {
	t.Helper()
	resp, _ := h.get(t, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "S256", loc.Query().Get("code_challenge_method"))
	return loc.Query().Get("state")
}

func (h *harness) authorize(t *testing.T) {
	t.Helper()
	state := h.login(t)
	resp, _ := h.get(t, "/callback?code=abc&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestWebFlow(t *testing.T) {
	t.Run("Signed out index links to login", func(t *testing.T) {
		h := newHarness(t, 100)

		resp, body := h.get(t, "/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `href="/login"`)
	})

	t.Run("Login, fetch, logout", func(t *testing.T) {
		h := newHarness(t, 100)
		h.authorize(t)
		assert.Zero(t, h.app.PendingLogins())

		_, body := h.get(t, "/")
		assert.Contains(t, body, "Test Listener")

		resp, body := h.get(t, "/me")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"display_name":"Test Listener"`)

		resp, body = h.get(t, "/top?category=tracks&time_range=short_term&limit=10&format=json")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var table struct {
			Category string              `json:"category"`
			Rows     []map[string]string `json:"rows"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &table))
		assert.Equal(t, "tracks", table.Category)
		assert.Len(t, table.Rows, 10)
		assert.Equal(t, "Track 0", table.Rows[0]["Track"])

		resp, body = h.get(t, "/top?category=artists&time_range=long_term&limit=20")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Artist 19")
		assert.Contains(t, body, "20 of 20 artists")

		resp, err := h.client.Post(h.srv.URL+"/logout", "", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

		resp, _ = h.get(t, "/me")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Declined login creates no session", func(t *testing.T) {
		h := newHarness(t, 100)
		state := h.login(t)

		resp, body := h.get(t, "/callback?error=access_denied&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "declined")
		assert.Zero(t, h.app.PendingLogins())

		resp, _ = h.get(t, "/me")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Forged state keeps the login pending", func(t *testing.T) {
		h := newHarness(t, 100)
		state := h.login(t)

		resp, _ := h.get(t, "/callback?code=abc&state=forged")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, 1, h.app.PendingLogins())

		resp, _ = h.get(t, "/callback?code=abc&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	})

	t.Run("Callback without login", func(t *testing.T) {
		h := newHarness(t, 100)

		resp, _ := h.get(t, "/callback?code=abc&state=x")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Page failure returns partial rows and the payload", func(t *testing.T) {
		h := newHarness(t, 1000)
		h.spotify.FailAt[50] = http.StatusInternalServerError
		h.authorize(t)

		resp, body := h.get(t, "/top?category=artists&time_range=medium_term&limit=100&format=json")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var failure struct {
			Status  int            `json:"status"`
			Page    int            `json:"page"`
			Payload map[string]any `json:"payload"`
			Partial struct {
				Rows []map[string]any `json:"rows"`
			} `json:"partial"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &failure))
		assert.Equal(t, http.StatusInternalServerError, failure.Status)
		assert.Equal(t, 2, failure.Page)
		assert.Contains(t, failure.Payload, "error")
		assert.Len(t, failure.Partial.Rows, 50)

		resp, body = h.get(t, "/top?category=artists&time_range=medium_term&limit=100")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Contains(t, body, "fake failure")
		assert.Contains(t, body, "Artist 49")
	})

	t.Run("Invalid count", func(t *testing.T) {
		h := newHarness(t, 100)
		h.authorize(t)

		resp, body := h.get(t, "/top?category=artists&time_range=medium_term&limit=30&format=json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.True(t, strings.Contains(body, "invalid input"))
	})

	t.Run("Top without a session redirects to login", func(t *testing.T) {
		h := newHarness(t, 100)

		resp, _ := h.get(t, "/top?category=artists&time_range=medium_term&limit=10")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})
}
