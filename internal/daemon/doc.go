// Package daemon composes the long-running service: catalog and blob
// storage, the ingestion coordinator, the delivery service, the HTTP
// API, and a reservation janitor, under flock-based locking so only one
// instance runs per installation.
package daemon
