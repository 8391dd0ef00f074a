// Package queue persists validated submissions in SQLite until they are sent
// upstream as a pull request.
//
// Each item snapshots the bytes of its files at enqueue time, so edits to the
// originals after `add` do not leak into the pull request. Items move from
// queued to submitted once a pull request exists; failed submissions stay
// queued with the last error recorded.
//
// The database is transient storage for pending work rather than an archive.
// Schema changes bump schemaVersion in schema.go; users clear the database to
// adopt the new schema.
package queue
