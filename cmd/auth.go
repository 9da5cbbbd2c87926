package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/topspot/internal/auth"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/server"
	"github.com/desertthunder/topspot/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the PKCE authorization flow and stores the resulting token as a new session.
//
// Starts a local HTTP server on the redirect URI, opens the browser at the consent page and waits for the callback.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	// A public client needs no secret, so a missing one is only worth a warning.
	if err := r.config.Credentials.Spotify.Validate(); err != nil {
		r.logger.Warn("incomplete credentials", "error", err)
	}

	authenticator, err := auth.New(auth.ConfigFrom(r.config),
		auth.WithHTTPClient(r.httpClient),
		auth.WithLogger(r.logger),
	)
	if err != nil {
		return fmt.Errorf("%w (set them in %s or the SPOTIFY_* environment)", err, r.configName())
	}

	result, err := r.doOAuth(ctx, authenticator)
	if err != nil {
		return err
	}

	if result.Outcome == auth.Declined {
		r.writePlainln("✗ Authorization declined; no session was created")
		return nil
	}

	displayName := ""
	if user, err := r.service.Profile(ctx, result.Token); err != nil {
		r.logger.Warn("failed to fetch profile", "error", err)
	} else {
		displayName = user.DisplayName
		if displayName == "" {
			displayName = user.ID
		}
	}

	store, err := r.sessionStore()
	if err != nil {
		return err
	}

	session := models.NewSession(0, result.Token, displayName)
	if err := store.Create(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	r.logger.Info("session created", "session", session.ID())

	r.writePlainln("✓ Authorization successful")
	if displayName != "" {
		r.writePlain("Logged in as %s\n", displayName)
	}
	r.writePlain("Session %s expires %s\n\n", session.ID(), formatExpiry(result.Token))
	r.writePlain("You can now use: topspot top --category artists --limit 20\n")
	return nil
}

// doOAuth serves the redirect URI until the provider calls back, the server fails or the timeout elapses.
func (r *Runner) doOAuth(ctx context.Context, authenticator *auth.Authenticator) (auth.Result, error) {
	begin, err := authenticator.BeginOrResume(ctx, nil)
	if err != nil {
		return auth.Result{}, err
	}
	if begin.Outcome != auth.Pending || begin.Trigger == nil {
		return begin, nil
	}

	addr, path, err := r.callbackAddr(begin.Trigger.RedirectURI)
	if err != nil {
		return auth.Result{}, err
	}

	callback := server.NewCallbackHandler(authenticator, path)
	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger), server.RequestLogger(r.logger))
	router.Handler(callback)

	httpServer, err := server.Listen(addr, router, r.logger)
	if err != nil {
		return auth.Result{}, err
	}
	r.logger.Infof("started callback server at %v", httpServer.Addr())

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(begin.Trigger.URL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", begin.Trigger.URL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", r.callbackTimeout)

	timeout := time.NewTimer(r.callbackTimeout)
	defer timeout.Stop()

	var result server.CallbackResult
	select {
	case result = <-callback.Result():
	case err := <-httpServer.Errors():
		return auth.Result{}, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return auth.Result{}, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, r.callbackTimeout)
	case <-ctx.Done():
		return auth.Result{}, ctx.Err()
	}

	if err := result.Error(); err != nil {
		return auth.Result{}, fmt.Errorf("authorization failed: %w", err)
	}
	return result.Result, nil
}

// callbackAddr derives the listen address and path from the redirect URI, using [server] for a missing port.
func (r *Runner) callbackAddr(redirectURI string) (addr, path string, err error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}

	path = u.Path
	if path == "" {
		path = "/"
	}

	addr = u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), fmt.Sprint(r.config.Server.Port))
	}
	return addr, path, nil
}

// AuthLogout soft-deletes the current session. Logging out twice is not an error.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	store, err := r.sessionStore()
	if err != nil {
		return err
	}

	session, err := store.Latest()
	if errors.Is(err, shared.ErrSessionNotFound) {
		return r.writePlain("Not logged in\n")
	}
	if err != nil {
		return err
	}

	if err := store.Delete(session.ID()); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	r.logger.Info("session deleted", "session", session.ID())

	return r.writePlain("✓ Logged out\n")
}

type sessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	Session       string     `json:"session,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	Scope         string     `json:"scope,omitempty"`
	ObtainedAt    *time.Time `json:"obtained_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
	Verified      *bool      `json:"verified,omitempty"`
}

// AuthStatus reports the stored session and, with --verify, whether the provider still accepts its token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.sessionStore()
	if err != nil {
		return err
	}

	status := sessionStatus{}
	session, err := store.Latest()
	switch {
	case errors.Is(err, shared.ErrSessionNotFound):
	case err != nil:
		return err
	default:
		token := session.Token()
		status.Authenticated = true
		status.Session = session.ID()
		status.DisplayName = session.DisplayName()
		status.Scope = token.Scope
		status.ObtainedAt = &token.ObtainedAt
		if !token.ExpiresAt.IsZero() {
			status.ExpiresAt = &token.ExpiresAt
		}
		status.Expired = token.Expired(time.Now())

		if cmd.Bool("verify") {
			_, err := r.service.Profile(ctx, token)
			ok := err == nil
			status.Verified = &ok
			if err != nil {
				r.logger.Warn("token rejected", "error", err)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		r.writePlain("Authentication: ✗ Not logged in\n")
		return r.writePlain("Run 'topspot auth login' to authorize\n")
	}

	r.writePlainHeader("Spotify session")
	r.writePlain("Session: %s\n", status.Session)
	if status.DisplayName != "" {
		r.writePlain("User: %s\n", status.DisplayName)
	}
	r.writePlain("Scope: %s\n", status.Scope)
	r.writePlain("Expires: %s\n", formatExpiry(session.Token()))
	if status.Verified != nil {
		if *status.Verified {
			r.writePlain("Authentication: ✓ Token accepted\n")
		} else {
			r.writePlain("Authentication: ✗ Token rejected\n")
		}
	}
	return nil
}

func formatExpiry(token models.TokenState) string {
	switch {
	case token.ExpiresAt.IsZero():
		return "never"
	case token.Expired(time.Now()):
		return token.ExpiresAt.Local().Format(time.DateTime) + " (expired)"
	default:
		return token.ExpiresAt.Local().Format(time.DateTime)
	}
}

func (r *Runner) configName() string {
	if r.configPath == "" {
		return defaultConfigPath
	}
	return r.configPath
}
