package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"tapevault/internal/auth"
	"tapevault/internal/blobstore"
	"tapevault/internal/catalog"
	"tapevault/internal/config"
	"tapevault/internal/ingest"
	"tapevault/internal/logging"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewCoordinator wires a full ingestion pipeline over temp directories.
func NewCoordinator(t testing.TB, cfg *config.Config, store *catalog.Store) *ingest.Coordinator {
	t.Helper()

	blobs, err := blobstore.NewLocal(cfg.Paths.MediaDir)
	if err != nil {
		t.Fatalf("blobstore.NewLocal: %v", err)
	}
	dedup, err := ingest.NewDedupIndex(context.Background(), store, cfg.ReservationTTL())
	if err != nil {
		t.Fatalf("ingest.NewDedupIndex: %v", err)
	}
	tapes, err := ingest.NewTapeRegistry(context.Background(), store, cfg.ReservationTTL())
	if err != nil {
		t.Fatalf("ingest.NewTapeRegistry: %v", err)
	}
	coordinator, err := ingest.NewCoordinator(logging.NewNop(), store, blobs, dedup, tapes, ingest.Options{
		SpoolDir:         cfg.Paths.SpoolDir,
		MaxBytes:         cfg.MaxUploadBytes(),
		AllowedMIMETypes: cfg.Ingest.AllowedMIMETypes,
	})
	if err != nil {
		t.Fatalf("ingest.NewCoordinator: %v", err)
	}
	return coordinator
}

// NewUser creates an active account with the given role and password.
func NewUser(t testing.TB, store *catalog.Store, username, password, role string) *catalog.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("auth.HashPassword: %v", err)
	}
	user := &catalog.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("store.CreateUser: %v", err)
	}
	return user
}
