// Package media defines the core domain types shared across the
// pipeline: asset records, source and lifecycle enumerations, and the
// sentinel error taxonomy every component classifies failures with.
package media
