// Package ingest orchestrates the accept-or-reject decision for one
// upload.
//
// The Coordinator drives each attempt through a fixed ladder: spool and
// fingerprint the stream, validate and normalize metadata under the
// source's policy, reserve the fingerprint in the dedup index and (for
// tape assets) the tape number in the registry — always in that order —
// then persist the bytes and commit. Any failure releases every
// reservation taken so far and removes partial bytes, so no
// partially-visible asset can ever be observed by delivery or by dedup
// lookups.
//
// Reservations are acquired fingerprint-first for every attempt, which
// rules out circular waits between two attempts racing on a swapped pair
// of keys.
package ingest
