package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tapevault/internal/blobstore"
	"tapevault/internal/catalog"
	"tapevault/internal/config"
	"tapevault/internal/deliver"
	"tapevault/internal/ingest"
	"tapevault/internal/logging"
	"tapevault/internal/server"
)

// sweepInterval is how often the janitor reaps expired reservations.
const sweepInterval = time.Minute

// Daemon owns the service lifecycle: the catalog store, blob store,
// ingestion coordinator, delivery service, and HTTP API, with
// flock-based locking to prevent multiple instances.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *catalog.Store
	coordinator *ingest.Coordinator
	api         *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs the daemon and wires every subsystem together.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
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

	delivery, err := deliver.NewService(logger, store, blobs)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	api := server.New(logger, cfg.Paths.APIBind, cfg.Auth.JWTSecret,
		server.NewAuthHandler(logger, store, cfg.Auth.JWTSecret, cfg.AccessTokenTTL()),
		server.NewMediaHandler(logger, store, coordinator,
			cfg.Ingest.EnableUserUploads, cfg.Ingest.EnableGuestUploads),
		server.NewStreamHandler(logger, delivery),
	)

	lockPath := filepath.Join(cfg.Paths.LogDir, "tapevaultd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.WithComponent(logger, "daemon"),
		store:       store,
		coordinator: coordinator,
		api:         api,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, launches the janitor, and serves the
// API. It blocks until the server stops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tapevault daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go d.janitor(runCtx)

	d.logger.Info("daemon started",
		slog.String("lock", d.lockPath),
		slog.String("catalog", d.store.Path()),
	)
	err = d.api.Start()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// janitor periodically reaps expired reservations so abandoned uploads
// release their fingerprints and tape numbers.
func (d *Daemon) janitor(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := d.coordinator.Sweep(); reaped > 0 {
				d.logger.Info("reaped expired reservations", slog.Int("count", reaped))
			}
		}
	}
}

// Stop shuts down the API, stops the janitor, and releases the lock.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Load() {
		return
	}
	if err := d.api.Stop(ctx); err != nil {
		d.logger.Warn("api shutdown", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close(ctx context.Context) error {
	d.Stop(ctx)
	return d.store.Close()
}
