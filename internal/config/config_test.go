package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tapevault/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	base := t.TempDir()
	path := writeConfig(t, `
[paths]
media_dir = "`+filepath.Join(base, "media")+`"
spool_dir = "`+filepath.Join(base, "spool")+`"
catalog_dir = "`+filepath.Join(base, "catalog")+`"
log_dir = "`+filepath.Join(base, "logs")+`"

[auth]
jwt_secret = "0123456789abcdef"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%s exists=%v", resolved, exists)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8642" {
		t.Fatalf("api bind = %s", cfg.Paths.APIBind)
	}
	if cfg.MaxUploadBytes() != 2048*1024*1024 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes())
	}
	if cfg.ReservationTTL() != 15*time.Minute {
		t.Fatalf("reservation ttl = %s", cfg.ReservationTTL())
	}
	if cfg.AccessTokenTTL() != 30*time.Minute {
		t.Fatalf("token ttl = %s", cfg.AccessTokenTTL())
	}
	if len(cfg.Ingest.AllowedMIMETypes) == 0 {
		t.Fatal("allowed MIME types should default")
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	path := writeConfig(t, `
[paths]
media_dir = "`+filepath.Join(t.TempDir(), "media")+`"
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	path := writeConfig(t, `
[auth]
jwt_secret = "short"
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "at least 16") {
		t.Fatalf("expected short-secret error, got %v", err)
	}
}

func TestLoadRejectsSharedSpoolAndMediaDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared")
	path := writeConfig(t, `
[paths]
media_dir = "`+dir+`"
spool_dir = "`+dir+`"

[auth]
jwt_secret = "0123456789abcdef"
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "spool_dir") {
		t.Fatalf("expected spool_dir error, got %v", err)
	}
}

func TestLoadRejectsNonMediaMIMEType(t *testing.T) {
	path := writeConfig(t, `
[auth]
jwt_secret = "0123456789abcdef"

[ingest]
allowed_mime_types = ["application/zip"]
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "allowed_mime_types") {
		t.Fatalf("expected MIME type error, got %v", err)
	}
}

func TestSampleConfigParses(t *testing.T) {
	target := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.WriteSample(target); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(target); err == nil {
		t.Fatal("WriteSample must refuse to overwrite")
	}
	if !strings.Contains(config.SampleConfig(), "[paths]") {
		t.Fatal("sample config missing [paths] section")
	}
}
