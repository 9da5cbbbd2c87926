// Package services implements the Spotify Web API calls used by TopSpot.
//
// # Client
//
// [SpotifyClient] issues authenticated GET requests for the user profile (/me) and one page of
// top items (/me/top/{artists|tracks}). The client never stores a token; callers pass the session's
// [models.TokenState] on every call. It never retries and never refreshes.
//
// # Errors
//
// Non-2xx responses become an [*APIError] carrying the status and the raw body:
//   - every [APIError] matches [shared.ErrAPIRequest]
//   - a 401 additionally matches [shared.ErrTokenExpired]
//
// Transport failures wrap [shared.ErrAPIRequest].
//
// # Projection
//
// [ProjectorFor] selects the [Projector] for a category. Projectors turn raw items into [models.Row]
// values and report [ErrMalformedItem] for items missing a required field.
package services
