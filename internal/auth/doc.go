// Package auth implements the OAuth2 Authorization Code flow with PKCE (S256) against Spotify.
//
// An [Authenticator] is a small state machine driven by [Authenticator.BeginOrResume]:
//
//	no token, no callback  -> Pending    (Trigger with the authorize URL; verifier and state kept)
//	callback, access_denied -> Declined  (pending state dropped, nothing persisted)
//	callback with code      -> Authorized (exactly one token endpoint call)
//	token held              -> Authorized (no network call)
//
// Any other provider error is returned as a [*ProtocolError]. Tokens are never refreshed or revoked:
// once the provider TTL elapses calls fail with 401 and the user logs in again.
package auth
