// Package web serves TopSpot in the browser.
//
// Routes:
//
//	GET  /          status page and fetch form
//	GET  /login     starts the PKCE authorization and redirects to the provider
//	GET  /callback  completes the authorization and creates a session
//	GET  /me        profile of the signed-in user (JSON)
//	GET  /top       top items as an HTML table, or JSON with format=json
//	POST /logout    ends the session
//
// The browser only ever holds opaque IDs. A login cookie keys the in-memory map of pending
// authenticators; a session cookie keys the persisted token in the session store.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/topspot/internal/auth"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/server"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/shared"
	"github.com/desertthunder/topspot/internal/tasks"
)

const (
	loginCookie   = "topspot_login"
	sessionCookie = "topspot_session"

	// pendingTTL bounds how long an unfinished login is kept.
	pendingTTL = 10 * time.Minute
)

// SessionStore persists sessions. [*repositories.SessionRepository] implements it.
type SessionStore interface {
	Create(session *models.Session) error
	Get(id string) (*models.Session, error)
	Delete(id string) error
}

// Options holds the dependencies of an [App].
type Options struct {
	Auth       auth.Config
	Sessions   SessionStore
	Service    services.Service
	Aggregator *tasks.Aggregator
	Logger     *log.Logger

	// HTTPClient is used for the token endpoint.
	HTTPClient *http.Client

	// SecureCookies marks cookies Secure; enable when served over HTTPS.
	SecureCookies bool
}

type pendingLogin struct {
	authenticator *auth.Authenticator
	started       time.Time
}

// App is the web interface. It implements [http.Handler].
type App struct {
	opts    Options
	logger  *log.Logger
	pages   map[string]*template.Template
	router  *server.BasicRouter
	now     func() time.Time
	mu      sync.Mutex
	pending map[string]*pendingLogin
}

// New creates the web app and registers its routes.
func New(opts Options) (*App, error) {
	if err := opts.Auth.Validate(); err != nil {
		return nil, err
	}
	if opts.Sessions == nil || opts.Service == nil || opts.Aggregator == nil {
		return nil, fmt.Errorf("%w: web app needs a session store, service and aggregator", shared.ErrMissingConfig)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	a := &App{
		opts:    opts,
		logger:  opts.Logger,
		pages:   pages,
		router:  server.NewBasicRouter(),
		now:     time.Now,
		pending: make(map[string]*pendingLogin),
	}

	a.router.Use(server.Recoverer(a.logger), server.RequestLogger(a.logger))
	a.router.HandleFunc(http.MethodGet, "/{$}", a.handleIndex)
	a.router.HandleFunc(http.MethodGet, "/login", a.handleLogin)
	a.router.HandleFunc(http.MethodGet, "/callback", a.handleCallback)
	a.router.HandleFunc(http.MethodGet, "/me", a.handleMe)
	a.router.HandleFunc(http.MethodGet, "/top", a.handleTop)
	a.router.HandleFunc(http.MethodPost, "/logout", a.handleLogout)

	return a, nil
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *App) clearCookie(w http.ResponseWriter, name string) {
	a.setCookie(w, name, "", -1)
}

// currentSession returns the live session named by the session cookie, or nil.
func (a *App) currentSession(w http.ResponseWriter, r *http.Request) *models.Session {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}

	session, err := a.opts.Sessions.Get(c.Value)
	if err != nil {
		if !errors.Is(err, shared.ErrSessionNotFound) {
			a.logger.Error("failed to load session", "error", err)
		}
		a.clearCookie(w, sessionCookie)
		return nil
	}
	return session
}

// takePending removes and returns the pending login for id. Expired entries are swept on the way.
func (a *App) takePending(id string) *pendingLogin {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for key, p := range a.pending {
		if now.Sub(p.started) > pendingTTL {
			delete(a.pending, key)
		}
	}

	p := a.pending[id]
	delete(a.pending, id)
	return p
}

func (a *App) putPending(id string, p *pendingLogin) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[id] = p
}

// PendingLogins reports how many logins await their callback.
func (a *App) PendingLogins() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
