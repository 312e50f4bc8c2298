package config

const (
	defaultMediaDir              = "~/.local/share/tapevault/media"
	defaultSpoolDir              = "~/.local/share/tapevault/spool"
	defaultCatalogDir            = "~/.local/share/tapevault/catalog"
	defaultLogDir                = "~/.local/share/tapevault/logs"
	defaultAPIBind               = "127.0.0.1:8642"
	defaultAccessTokenTTLMinutes = 30
	defaultMaxUploadMiB          = 2048
	defaultReservationTTLMinutes = 15
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

func defaultAllowedMIMETypes() []string {
	return []string{
		"video/mp4",
		"video/quicktime",
		"video/webm",
		"image/jpeg",
		"image/png",
		"image/heic",
		"image/webp",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir:   defaultMediaDir,
			SpoolDir:   defaultSpoolDir,
			CatalogDir: defaultCatalogDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Auth: Auth{
			AccessTokenTTLMinutes: defaultAccessTokenTTLMinutes,
		},
		Ingest: Ingest{
			MaxUploadMiB:          defaultMaxUploadMiB,
			ReservationTTLMinutes: defaultReservationTTLMinutes,
			AllowedMIMETypes:      defaultAllowedMIMETypes(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
