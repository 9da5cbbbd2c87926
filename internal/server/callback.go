package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/topspot/internal/auth"
)

// Resumer advances an authorization flow with a provider callback. [*auth.Authenticator] implements it.
type Resumer interface {
	BeginOrResume(ctx context.Context, cb *auth.Callback) (auth.Result, error)
}

// CallbackResult is the outcome of the single accepted callback.
type CallbackResult struct {
	Result auth.Result
	err    error
}

func (c CallbackResult) Error() error {
	return c.err
}

// CallbackHandler handles the provider redirect for a CLI login.
//
// It hands the callback to the authenticator, renders a page for the browser and delivers the outcome on
// [CallbackHandler.Result]. Only the first callback with a matching state is processed.
type CallbackHandler struct {
	resumer    Resumer
	path       string
	resultChan chan CallbackResult
	once       sync.Once
	mu         sync.Mutex
	handled    bool
}

// NewCallbackHandler creates a handler serving path (e.g. "/callback").
func NewCallbackHandler(resumer Resumer, path string) *CallbackHandler {
	return &CallbackHandler{
		resumer:    resumer,
		path:       path,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	res, err := h.resumer.BeginOrResume(r.Context(), auth.CallbackFromQuery(r.URL.Query()))
	if errors.Is(err, auth.ErrStateMismatch) {
		// Leave the login open for the real redirect.
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.Send(CallbackResult{Result: res, err: err})

	switch {
	case err != nil:
		RenderMessage(w, http.StatusBadRequest, "Authorization Failed", err.Error())
	case res.Outcome == auth.Declined:
		RenderMessage(w, http.StatusOK, "Authorization Declined", "No data was shared. You can close this window.")
	default:
		RenderMessage(w, http.StatusOK, "✓ Authorization Successful", "You can close this window and return to the terminal.")
	}
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

var messagePage = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Body}}</p>
    </div>
</body>
</html>
`))

// RenderMessage writes a small standalone HTML page.
func RenderMessage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := messagePage.Execute(w, struct{ Title, Body string }{title, body}); err != nil {
		fmt.Fprintln(w, title)
	}
}
