// Package blobstore abstracts the durable byte store addressed by
// fingerprint-derived keys.
//
// Provider is the contract the pipeline and delivery path consume:
// write-once Put, whole-object Open, OpenRange for partial reads, and
// Delete. Local is the filesystem implementation; it writes through a
// temp file and renames, so a key either holds the complete object or
// nothing.
package blobstore
