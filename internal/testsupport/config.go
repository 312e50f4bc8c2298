package testsupport

import (
	"path/filepath"
	"testing"

	"tapevault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.SpoolDir = filepath.Join(base, "spool")
	cfg.Paths.CatalogDir = filepath.Join(base, "catalog")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Auth.JWTSecret = "test-secret-0123456789"
	cfg.Ingest.EnableUserUploads = true
	cfg.Ingest.EnableGuestUploads = true

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxUploadMiB overrides the upload cap on the test config.
func WithMaxUploadMiB(mib int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.MaxUploadMiB = mib
	}
}

// WithAllowedMIMETypes overrides the MIME allow list on the test config.
func WithAllowedMIMETypes(types ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.AllowedMIMETypes = types
	}
}
