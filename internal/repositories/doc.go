// Package repositories implements SQLite persistence for login sessions.
//
// [SessionRepository] implements models.Repository[*models.Session]. A session row maps an opaque
// session ID (a UUID held by the CLI config or a browser cookie) to the access token obtained at login.
// Logging out soft-deletes the row via deleted_at; deleted rows are excluded from every query.
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
