// Package contentaddr computes content fingerprints for incoming byte
// streams and derives the blob-store keys addressed by them.
//
// Fingerprinting is single-pass: the stream is hashed with SHA-256 while
// being spooled to a temp file under the configured spool directory, so
// memory stays bounded regardless of upload size. The spool is handed to
// the caller for persistence and must be removed by the caller on every
// outcome.
package contentaddr
