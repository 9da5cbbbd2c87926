package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/topspot/internal/shared"
)

// TokenState is the bearer token held for a session.
//
// It is created once on authorization and dropped on logout. Nothing refreshes it:
// after ExpiresAt the provider rejects calls with 401.
type TokenState struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Scope       string    `json:"scope,omitempty"`
	ObtainedAt  time.Time `json:"obtained_at"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// Validate checks that an access token is present.
func (t TokenState) Validate() error {
	if t.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrNotAuthenticated)
	}
	return nil
}

// Expired reports whether the provider TTL has elapsed at now. A zero ExpiresAt never expires.
func (t TokenState) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Authorization returns the value for the Authorization header.
func (t TokenState) Authorization() string {
	return "Bearer " + t.AccessToken
}
