// Package catalog persists media assets, users, tags, and comments in
// SQLite.
//
// The Store manages the database connection, schema initialization, asset
// lifecycle transitions, and soft deletes. Partial unique indexes on the
// content fingerprint and the tape number (non-deleted rows only) back the
// in-process reservation tables, so the uniqueness invariants hold even if
// the daemon restarts mid-ingestion.
//
// Status transitions are enforced here: an asset row only moves
// processing→ready or processing→failed, and updates guard on the current
// status so terminal states cannot revert.
//
// Treat this package as the single source of truth for catalog semantics;
// when you add columns, update schema.sql and bump schemaVersion.
package catalog
