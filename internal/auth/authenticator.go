package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/shared"
	"golang.org/x/oauth2"
)

// Config is the immutable client registration and provider endpoints.
//
// ClientSecret may be empty for a public client; PKCE alone binds the code to this client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	RefreshURL   string // never called
	RevokeURL    string // never called
	Scope        string // space separated
}

// ConfigFrom builds a [Config] from the application configuration.
func ConfigFrom(c *shared.Config) Config {
	return Config{
		ClientID:     c.Credentials.Spotify.ClientID,
		ClientSecret: c.Credentials.Spotify.ClientSecret,
		RedirectURI:  c.Credentials.Spotify.RedirectURI,
		AuthorizeURL: c.Provider.AuthorizeURL,
		TokenURL:     c.Provider.TokenURL,
		RefreshURL:   c.Provider.RefreshURL,
		RevokeURL:    c.Provider.RevokeURL,
		Scope:        c.Provider.Scope,
	}
}

func (c Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}
	if c.AuthorizeURL == "" {
		missing = append(missing, "authorize_url")
	}
	if c.TokenURL == "" {
		missing = append(missing, "token_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Outcome is the state reported by [Authenticator.BeginOrResume].
type Outcome int

const (
	Pending Outcome = iota
	Declined
	Authorized
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Declined:
		return "declined"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Trigger is what a UI needs to send the user to the provider's consent page.
type Trigger struct {
	URL         string
	ClientID    string
	RedirectURI string
	Scope       string
	State       string
	Challenge   string
}

// Callback carries the query parameters of the provider redirect.
type Callback struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
	ErrorURI         string
}

// CallbackFromQuery reads a [Callback] from redirect query parameters.
func CallbackFromQuery(q url.Values) *Callback {
	return &Callback{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		ErrorURI:         q.Get("error_uri"),
	}
}

// Result is returned by [Authenticator.BeginOrResume]. Trigger is set only when Pending; Token only when Authorized.
type Result struct {
	Outcome Outcome
	Trigger *Trigger
	Token   models.TokenState
}

type pending struct {
	verifier string
	trigger  Trigger
}

// Option configures an [Authenticator].
type Option func(*Authenticator)

// WithHTTPClient sets the client used for the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides time.Now for ObtainedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithStateGenerator overrides how the anti-forgery state is produced.
func WithStateGenerator(fn func() (string, error)) Option {
	return func(a *Authenticator) { a.newState = fn }
}

// Authenticator holds one session's authorization state. It is safe for concurrent use.
type Authenticator struct {
	mu         sync.Mutex
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
	newState   func() (string, error)

	pending *pending
	token   *models.TokenState
}

// New creates an [Authenticator] for cfg.
func New(cfg Config, opts ...Option) (*Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Authenticator{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
				// Auto-detection retries the token call with a different auth style.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		logger:   log.New(io.Discard),
		now:      time.Now,
		newState: shared.GenerateState,
	}
	if cfg.ClientSecret == "" {
		a.oauth.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// BeginOrResume advances the authorization flow.
//
// With a held token it returns Authorized immediately. With no callback it returns Pending and a
// [Trigger]; repeated calls while pending return the same trigger. With a callback it validates state
// and either reports Declined, returns a [*ProtocolError], or exchanges the code once.
func (a *Authenticator) BeginOrResume(ctx context.Context, cb *Callback) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != nil {
		return Result{Outcome: Authorized, Token: *a.token}, nil
	}

	if cb == nil {
		return a.begin()
	}
	return a.resume(ctx, cb)
}

func (a *Authenticator) begin() (Result, error) {
	if a.pending != nil {
		trigger := a.pending.trigger
		return Result{Outcome: Pending, Trigger: &trigger}, nil
	}

	state, err := a.newState()
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	p := &pending{
		verifier: verifier,
		trigger: Trigger{
			URL:         a.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
			ClientID:    a.cfg.ClientID,
			RedirectURI: a.cfg.RedirectURI,
			Scope:       strings.Join(a.oauth.Scopes, " "),
			State:       state,
			Challenge:   oauth2.S256ChallengeFromVerifier(verifier),
		},
	}
	a.pending = p
	a.logger.Debug("authorization pending", "redirect_uri", p.trigger.RedirectURI, "scope", p.trigger.Scope)

	trigger := p.trigger
	return Result{Outcome: Pending, Trigger: &trigger}, nil
}

func (a *Authenticator) resume(ctx context.Context, cb *Callback) (Result, error) {
	if a.pending == nil {
		return Result{}, ErrNoPendingAuthorization
	}
	// A forged callback must not cancel the user's real attempt, so pending state is kept.
	if cb.State != a.pending.trigger.State {
		a.logger.Warn("callback state mismatch")
		return Result{}, ErrStateMismatch
	}

	verifier := a.pending.verifier
	a.pending = nil

	if cb.Error != "" {
		if cb.Error == codeAccessDenied {
			a.logger.Info("authorization declined")
			return Result{Outcome: Declined}, nil
		}
		return Result{}, &ProtocolError{Code: cb.Error, Description: cb.ErrorDescription, URI: cb.ErrorURI}
	}
	if cb.Code == "" {
		return Result{}, &ProtocolError{Code: "invalid_request", Description: "callback carries no authorization code"}
	}

	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	tok, err := a.oauth.Exchange(ctx, cb.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			if re.ErrorCode == codeAccessDenied {
				a.logger.Info("authorization declined by token endpoint")
				return Result{Outcome: Declined}, nil
			}
			return Result{}, &ProtocolError{Code: re.ErrorCode, Description: re.ErrorDescription, URI: re.ErrorURI, Err: re}
		}
		return Result{}, &ProtocolError{Err: err}
	}

	state := a.tokenState(tok)
	a.token = &state
	a.logger.Info("authorized", "scope", state.Scope, "expires_at", state.ExpiresAt)

	return Result{Outcome: Authorized, Token: state}, nil
}

// tokenState keeps only the access token; any refresh token is discarded.
func (a *Authenticator) tokenState(tok *oauth2.Token) models.TokenState {
	scope, _ := tok.Extra("scope").(string)
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return models.TokenState{
		AccessToken: tok.AccessToken,
		TokenType:   tokenType,
		Scope:       scope,
		ObtainedAt:  a.now(),
		ExpiresAt:   tok.Expiry,
	}
}

// Logout drops the token and any pending authorization. Calling it twice is harmless.
func (a *Authenticator) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = nil
	a.pending = nil
}

// Restore installs a previously obtained token, e.g. one loaded from the session store.
func (a *Authenticator) Restore(token models.TokenState) error {
	if err := token.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = &token
	a.pending = nil
	return nil
}

// Token returns the held token, if any.
func (a *Authenticator) Token() (models.TokenState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == nil {
		return models.TokenState{}, false
	}
	return *a.token, true
}

// Pending reports whether an authorization is awaiting its callback.
func (a *Authenticator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}
