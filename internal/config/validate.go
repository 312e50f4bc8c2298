package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.MediaDir == "" {
		return errors.New("paths.media_dir must be set")
	}
	if c.Paths.CatalogDir == "" {
		return errors.New("paths.catalog_dir must be set")
	}
	if c.Paths.MediaDir == c.Paths.SpoolDir {
		return errors.New("paths.spool_dir must differ from paths.media_dir")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tapevault/config.toml"
		}
		return fmt.Errorf("auth.jwt_secret is required. Edit %s (create with 'tapevault config init')", defaultPath)
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		return errors.New("auth.access_token_ttl_minutes must be positive")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxUploadMiB <= 0 {
		return errors.New("ingest.max_upload_mib must be positive")
	}
	for _, mime := range c.Ingest.AllowedMIMETypes {
		if !strings.HasPrefix(mime, "video/") && !strings.HasPrefix(mime, "image/") {
			return fmt.Errorf("ingest.allowed_mime_types: %q is not a video or image type", mime)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
