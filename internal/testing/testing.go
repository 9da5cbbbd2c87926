// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/shared"
)

// ArtistItem returns a well-formed raw artist object for position i.
func ArtistItem(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"name":"Artist %d","genres":["genre %d"],"popularity":%d}`, i, i%7, 100-i%100))
}

// TrackItem returns a well-formed raw track object for position i.
func TrackItem(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"name":"Track %d","album":{"name":"Album %d"},"artists":[{"name":"Artist %d"}]}`, i, i/10, i%5))
}

// MockService is a test double for [services.Service] backed by a catalog of Available items.
type MockService struct {
	Available int
	User      services.SpotifyUser

	// FailAt maps an offset to the error its page returns.
	FailAt map[int]error

	mu    sync.Mutex
	calls [][2]int
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) Profile(ctx context.Context, token models.TokenState) (*services.SpotifyUser, error) {
	if err := token.Validate(); err != nil {
		return nil, err
	}
	user := m.User
	return &user, nil
}

func (m *MockService) TopItems(ctx context.Context, token models.TokenState, category models.Category, window models.Window, limit, offset int) (*services.TopItemsPage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, [2]int{limit, offset})
	m.mu.Unlock()

	if err, ok := m.FailAt[offset]; ok {
		return nil, err
	}

	page := &services.TopItemsPage{Total: m.Available, Limit: limit, Offset: offset}
	for i := offset; i < min(offset+limit, m.Available); i++ {
		if category == models.Artists {
			page.Items = append(page.Items, ArtistItem(i))
		} else {
			page.Items = append(page.Items, TrackItem(i))
		}
	}
	return page, nil
}

// Calls returns the (limit, offset) pairs requested so far.
func (m *MockService) Calls() [][2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]int(nil), m.calls...)
}

// FakeSpotify is an httptest server answering /me and /me/top/{category} like the Web API.
type FakeSpotify struct {
	*httptest.Server
	Available int

	// FailAt maps an offset to the HTTP status its page returns.
	FailAt map[int]int
}

// NewFakeSpotify starts a fake API with available items per category.
func NewFakeSpotify(t *testing.T, available int) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{Available: available, FailAt: map[int]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", f.authorized(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"listener","display_name":"Test Listener","country":"US","product":"premium","followers":{"total":42}}`))
	}))
	mux.HandleFunc("GET /me/top/{category}", f.authorized(f.top))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *FakeSpotify) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+TestAccessToken {
			writeAPIError(w, http.StatusUnauthorized, "Invalid access token")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

func (f *FakeSpotify) top(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if status, ok := f.FailAt[offset]; ok {
		writeAPIError(w, status, "fake failure")
		return
	}

	item := TrackItem
	if r.PathValue("category") == "artists" {
		item = ArtistItem
	}

	page := services.TopItemsPage{Items: []json.RawMessage{}, Total: f.Available, Limit: limit, Offset: offset}
	for i := offset; i < min(offset+limit, f.Available); i++ {
		page.Items = append(page.Items, item(i))
	}
	json.NewEncoder(w).Encode(page)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"status":%d,"message":%q}}`, status, message)
}

// TestAccessToken is the only token [FakeSpotify] and [NewFakeAccounts] accept and issue.
const TestAccessToken = "test-access-token"

// NewFakeAccounts starts a fake token endpoint that issues [TestAccessToken] for any code.
func NewFakeAccounts(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code_verifier") == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_request","error_description":"code_verifier required"}`))
			return
		}
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":3600,"scope":"user-top-read"}`, TestAccessToken)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestConfig returns a configuration pointing at the given fake servers with an in-memory database.
func TestConfig(apiURL, tokenURL string) *shared.Config {
	cfg := shared.DefaultConfig()
	cfg.Credentials.Spotify = shared.SpotifyConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURI:  "http://127.0.0.1:3000/callback",
	}
	cfg.Provider.APIBaseURL = apiURL
	cfg.Provider.TokenURL = tokenURL
	cfg.Database.Path = shared.MemoryDatabase
	return cfg
}

// NewTestDB opens an in-memory SQLite database with migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
