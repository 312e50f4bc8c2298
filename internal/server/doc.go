// Package server assembles the HTTP API: the Echo instance with recovery,
// request logging, and JWT middleware, plus the handlers for auth, media
// ingestion and catalog queries, and range-aware streaming.
package server
