package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/topspot/internal/auth"
	"github.com/desertthunder/topspot/internal/formatter"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/shared"
	"github.com/desertthunder/topspot/internal/tasks"
)

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Categories: models.Categories,
		Windows:    models.Windows,
		Counts:     models.AllowedCounts,
	}
	if session := a.currentSession(w, r); session != nil {
		data.User = displayName(session)
	}
	a.render(w, http.StatusOK, "index", data)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.currentSession(w, r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	authenticator, err := auth.New(a.opts.Auth, auth.WithHTTPClient(a.opts.HTTPClient), auth.WithLogger(a.logger))
	if err != nil {
		a.renderError(w, http.StatusInternalServerError, "Login unavailable", err)
		return
	}

	res, err := authenticator.BeginOrResume(r.Context(), nil)
	if err != nil {
		a.renderError(w, http.StatusInternalServerError, "Login unavailable", err)
		return
	}

	id := shared.GenerateID()
	a.putPending(id, &pendingLogin{authenticator: authenticator, started: a.now()})
	a.setCookie(w, loginCookie, id, int(pendingTTL.Seconds()))

	http.Redirect(w, r, res.Trigger.URL, http.StatusFound)
}

func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(loginCookie)
	if err != nil {
		a.renderError(w, http.StatusBadRequest, "No login in progress", auth.ErrNoPendingAuthorization)
		return
	}

	pending := a.takePending(c.Value)
	if pending == nil {
		a.clearCookie(w, loginCookie)
		a.renderError(w, http.StatusBadRequest, "Login expired", auth.ErrNoPendingAuthorization)
		return
	}

	res, err := pending.authenticator.BeginOrResume(r.Context(), auth.CallbackFromQuery(r.URL.Query()))
	if errors.Is(err, auth.ErrStateMismatch) {
		a.putPending(c.Value, pending)
		a.renderError(w, http.StatusBadRequest, "Invalid state parameter", err)
		return
	}
	a.clearCookie(w, loginCookie)

	if err != nil {
		a.logger.Error("authorization failed", "error", err)
		a.renderError(w, http.StatusBadRequest, "Authorization failed", err)
		return
	}

	if res.Outcome == auth.Declined {
		a.render(w, http.StatusOK, "message", pageData{
			Title: "Authorization declined",
			Body:  "Nothing was shared. You can log in again at any time.",
		})
		return
	}

	name := ""
	if user, err := a.opts.Service.Profile(r.Context(), res.Token); err != nil {
		a.logger.Warn("failed to fetch profile", "error", err)
	} else {
		name = user.DisplayName
	}

	session := models.NewSession(0, res.Token, name)
	if err := a.opts.Sessions.Create(session); err != nil {
		a.renderError(w, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	a.setCookie(w, sessionCookie, session.ID(), 0)
	a.logger.Info("session created", "sequence", session.Sequence(), "user", name)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	session := a.currentSession(w, r)
	if session == nil {
		a.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": shared.ErrNotAuthenticated.Error()})
		return
	}

	user, err := a.opts.Service.Profile(r.Context(), session.Token())
	if err != nil {
		a.writeJSON(w, upstreamStatus(err), errorBody(err))
		return
	}
	a.writeJSON(w, http.StatusOK, user)
}

func (a *App) handleTop(w http.ResponseWriter, r *http.Request) {
	asJSON := r.URL.Query().Get("format") == "json"

	session := a.currentSession(w, r)
	if session == nil {
		if asJSON {
			a.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": shared.ErrNotAuthenticated.Error()})
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	req, err := parseFetchRequest(r)
	if err != nil {
		if asJSON {
			a.writeJSON(w, http.StatusBadRequest, errorBody(err))
			return
		}
		a.renderError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	table, err := a.opts.Aggregator.Fetch(r.Context(), session.Token(), req, nil)

	if asJSON {
		if err != nil {
			body := errorBody(err)
			body["partial"] = table
			a.writeJSON(w, upstreamStatus(err), body)
			return
		}
		a.writeJSON(w, http.StatusOK, table)
		return
	}

	data := pageData{User: displayName(session), Title: formatter.Title(models.NewResultTable(req))}
	status := http.StatusOK
	if err != nil {
		status = upstreamStatus(err)
		data.Error = newErrorView(err)
	}
	if table != nil {
		data.Table = table
		data.Summary = formatter.Summary(table)
	}
	a.render(w, status, "top", data)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if err := a.opts.Sessions.Delete(c.Value); err != nil && !errors.Is(err, shared.ErrSessionNotFound) {
			a.logger.Error("failed to delete session", "error", err)
		}
	}
	a.clearCookie(w, sessionCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func parseFetchRequest(r *http.Request) (models.FetchRequest, error) {
	q := r.URL.Query()

	category, err := models.ParseCategory(q.Get("category"))
	if err != nil {
		return models.FetchRequest{}, err
	}
	window, err := models.ParseWindow(q.Get("time_range"))
	if err != nil {
		return models.FetchRequest{}, err
	}
	count, err := models.ParseCount(q.Get("limit"))
	if err != nil {
		return models.FetchRequest{}, err
	}
	return models.FetchRequest{Category: category, Window: window, Count: count}, nil
}

func displayName(s *models.Session) string {
	if s.DisplayName() != "" {
		return s.DisplayName()
	}
	return "Signed in"
}

// upstreamStatus maps provider failures onto a response status: 401 stays 401, anything else is a bad gateway.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func errorBody(err error) map[string]any {
	body := map[string]any{"error": err.Error()}
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		body["status"] = apiErr.StatusCode
		body["payload"] = apiErr.Payload()
	}
	var pageErr *tasks.PageError
	if errors.As(err, &pageErr) {
		body["page"] = pageErr.Page.Index + 1
	}
	return body
}

func newErrorView(err error) *errorView {
	v := &errorView{Message: err.Error()}
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
		v.Payload = string(apiErr.Body)
	}
	return v
}

func (a *App) renderError(w http.ResponseWriter, status int, title string, err error) {
	a.render(w, status, "message", pageData{Title: title, Error: newErrorView(err)})
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}
