// Package auth issues and verifies the JWT access tokens that guard the
// HTTP API, and checks gallery credentials against the catalog.
//
// The ingestion and delivery core never re-derives identity; it trusts
// the Caller this package attaches to each request.
package auth
