// Package recording persists call recordings in SQLite and enforces their
// lifecycle state machine.
//
// The Store manages database connections, schema initialization, claim and
// reclaim semantics, heartbeat tracking, and the guarded status transitions
// that protect against double-processing. Recordings move DOWNLOADED ->
// TRANSCRIBING -> COMPLETED or FAILED; the only reverse edge is the explicit
// retry reset FAILED -> DOWNLOADED. Any other edge fails with
// ErrIllegalTransition and is never silently accepted.
//
// Treat this package as the single source of truth for recording status; all
// mutation flows through its atomic operations, never through read-then-write
// from worker-local state. When you add statuses or columns, update
// schema.sql and bump schemaVersion.
package recording
