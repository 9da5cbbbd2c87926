package shared

import "fmt"

// Sentinels shared across packages. Wrap them with %w and match with errors.Is.
var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// config.toml and environment
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization flow and stored sessions
	ErrAuthFailed       = fmt.Errorf("authorization failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Provider responses
	ErrAPIRequest = fmt.Errorf("API request failed")

	// User input
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrInvalidFlag  = fmt.Errorf("invalid flag value")
)
