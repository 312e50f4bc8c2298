// Package logging constructs the slog loggers used across the daemon and CLI.
//
// It maps config values to handler options (console or JSON, level), fans
// output out to stdout and the daemon log file, and provides the shared
// attribute helpers so field names stay consistent across components.
package logging
