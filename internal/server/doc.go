// Package server provides HTTP routing, middleware, and the OAuth callback handler for the CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] and [Recoverer] are the stock middleware.
//
// The [BasicRouter] implementation registers [http.ServeMux] method patterns.
//
// # Callback Handler
//
// [CallbackHandler] serves the redirect URI during a CLI login. A temporary HTTP server starts on the
// configured host and port, the handler passes the callback to the authenticator (which validates state
// and exchanges the code), and the outcome arrives on a channel. A callback with the wrong state is
// rejected without ending the login; after that only one callback is processed.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
