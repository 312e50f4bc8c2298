// Package sourcepolicy holds the per-source-kind validation and
// normalization rules applied during ingestion.
//
// Each source kind (digitized video tape, the cloud importers, user and
// guest uploads) gets one Policy variant. Tape assets must carry a tape
// number; every other source forbids one. Adding a source kind means
// adding one variant and registering it in ForSource; the ingestion
// coordinator never changes.
//
// Content checks shared by all variants (media kind, payload size,
// declared vs sniffed MIME type) live in ValidateContent.
package sourcepolicy
