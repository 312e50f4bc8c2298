package main

import (
	"context"
	"log/slog"

	"tapevault/internal/blobstore"
	"tapevault/internal/catalog"
	"tapevault/internal/config"
	"tapevault/internal/ingest"
	"tapevault/internal/logging"
)

// commandContext lazily loads configuration and opens subsystems for
// commands that need them.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// pipeline bundles the subsystems CLI commands drive directly, without
// a running daemon.
type pipeline struct {
	cfg         *config.Config
	store       *catalog.Store
	coordinator *ingest.Coordinator
	logger      *slog.Logger
}

func (c *commandContext) openPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewNop()

	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, err
	}
	blobs, err := blobstore.NewLocal(cfg.Paths.MediaDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	dedup, err := ingest.NewDedupIndex(ctx, store, cfg.ReservationTTL())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	tapes, err := ingest.NewTapeRegistry(ctx, store, cfg.ReservationTTL())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	coordinator, err := ingest.NewCoordinator(logger, store, blobs, dedup, tapes, ingest.Options{
		SpoolDir:         cfg.Paths.SpoolDir,
		MaxBytes:         cfg.MaxUploadBytes(),
		AllowedMIMETypes: cfg.Ingest.AllowedMIMETypes,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &pipeline{cfg: cfg, store: store, coordinator: coordinator, logger: logger}, nil
}

func (p *pipeline) close() {
	_ = p.store.Close()
}
