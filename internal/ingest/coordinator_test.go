package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tapevault/internal/blobstore"
	"tapevault/internal/catalog"
	"tapevault/internal/config"
	"tapevault/internal/ingest"
	"tapevault/internal/logging"
	"tapevault/internal/media"
	"tapevault/internal/sourcepolicy"
	"tapevault/internal/testsupport"
)

func photoRequest(payload []byte) ingest.Request {
	return ingest.Request{
		Meta: sourcepolicy.Metadata{
			Kind:       media.KindPhoto,
			SourceKind: media.SourceUserUpload,
		},
		Body:       bytes.NewReader(payload),
		UploadedBy: "user-1",
	}
}

func tapeRequest(payload []byte, tapeNumber string) ingest.Request {
	return ingest.Request{
		Meta: sourcepolicy.Metadata{
			Kind:       media.KindVideo,
			SourceKind: media.SourceVideoTape,
			TapeNumber: tapeNumber,
		},
		Body:       bytes.NewReader(payload),
		UploadedBy: "user-1",
	}
}

func TestIngestRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)
	ctx := context.Background()

	asset, err := coordinator.Ingest(ctx, photoRequest(testsupport.JPEGPayload("summer")))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if asset.Status != media.StatusReady {
		t.Fatalf("status = %s, want ready", asset.Status)
	}
	if asset.MIME != "image/jpeg" {
		t.Fatalf("MIME = %q, want image/jpeg", asset.MIME)
	}
	if asset.Visibility != media.VisibilityFamily {
		t.Fatalf("visibility = %s, want family default", asset.Visibility)
	}

	stored, err := store.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if stored == nil || stored.Status != media.StatusReady {
		t.Fatalf("catalog row = %+v", stored)
	}
}

func TestIngestDuplicateContentReportsFirstAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)
	ctx := context.Background()

	payload := testsupport.JPEGPayload("the one photo everyone re-uploads")
	first, err := coordinator.Ingest(ctx, photoRequest(payload))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	_, err = coordinator.Ingest(ctx, photoRequest(payload))
	if !errors.Is(err, media.ErrDuplicateContent) {
		t.Fatalf("expected ErrDuplicateContent, got %v", err)
	}
	var conflict *media.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ExistingID != first.ID {
		t.Fatalf("conflict references %s, want %s", conflict.ExistingID, first.ID)
	}
}

func TestIngestDuplicateTapeNumber(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)
	ctx := context.Background()

	first, err := coordinator.Ingest(ctx, tapeRequest(testsupport.MP4Payload("christmas 1993"), "TAPE-12"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// Different bytes, same tape number.
	_, err = coordinator.Ingest(ctx, tapeRequest(testsupport.MP4Payload("christmas 1994"), "TAPE-12"))
	if !errors.Is(err, media.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	var conflict *media.ConflictError
	if !errors.As(err, &conflict) || conflict.ExistingID != first.ID {
		t.Fatalf("conflict = %v, want reference to %s", err, first.ID)
	}
}

func TestIngestValidationFailureReleasesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)
	ctx := context.Background()

	// Tape number on a non-tape source is rejected before any state exists.
	req := photoRequest(testsupport.JPEGPayload("photo"))
	req.Meta.TapeNumber = "TAPE-1"
	if _, err := coordinator.Ingest(ctx, req); !errors.Is(err, media.ErrForbiddenField) {
		t.Fatalf("expected ErrForbiddenField, got %v", err)
	}

	// The same bytes must then ingest cleanly: nothing was reserved.
	if _, err := coordinator.Ingest(ctx, photoRequest(testsupport.JPEGPayload("photo"))); err != nil {
		t.Fatalf("retry after validation failure: %v", err)
	}
}

func TestIngestRejectsOversizedPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxUploadMiB(1))
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)

	big := append(testsupport.JPEGPayload(""), bytes.Repeat([]byte{0xAB}, 2<<20)...)
	_, err := coordinator.Ingest(context.Background(), photoRequest(big))
	if !errors.Is(err, media.ErrInvalidMediaType) {
		t.Fatalf("expected ErrInvalidMediaType for oversize payload, got %v", err)
	}
}

type abortReader struct {
	reader io.Reader
	limit  int
	read   int
	cancel context.CancelFunc
}

// Read cancels the context partway through the stream, after the sniff
// window has been consumed.
func (a *abortReader) Read(p []byte) (int, error) {
	if a.read >= a.limit {
		a.cancel()
	}
	n, err := a.reader.Read(p)
	a.read += n
	return n, err
}

func TestIngestCancellationThenRetrySucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)

	payload := append(testsupport.MP4Payload("long tape"), bytes.Repeat([]byte{0x11}, 64<<10)...)

	ctx, cancel := context.WithCancel(context.Background())
	req := tapeRequest(nil, "TAPE-77")
	req.Body = &abortReader{reader: bytes.NewReader(payload), limit: 16 << 10, cancel: cancel}
	_, err := coordinator.Ingest(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The aborted attempt must release its reservations so a retry with
	// the same fingerprint and tape number succeeds with a new identity.
	retry, err := coordinator.Ingest(context.Background(), tapeRequest(payload, "TAPE-77"))
	if err != nil {
		t.Fatalf("retry after cancellation: %v", err)
	}
	if retry.Status != media.StatusReady {
		t.Fatalf("retry status = %s, want ready", retry.Status)
	}
}

// hookedPutProvider runs a hook before delegating Put, for injecting
// failures and delays into the persisting stage.
type hookedPutProvider struct {
	blobstore.Provider
	beforePut func() error
}

func (p *hookedPutProvider) Put(ctx context.Context, key string, reader io.Reader) error {
	if p.beforePut != nil {
		if err := p.beforePut(); err != nil {
			return err
		}
	}
	return p.Provider.Put(ctx, key, reader)
}

func wireCoordinator(t *testing.T, cfg *config.Config, store *catalog.Store, blobs blobstore.Provider, ttl time.Duration) *ingest.Coordinator {
	t.Helper()
	dedup, err := ingest.NewDedupIndex(context.Background(), store, ttl)
	if err != nil {
		t.Fatalf("NewDedupIndex: %v", err)
	}
	tapes, err := ingest.NewTapeRegistry(context.Background(), store, ttl)
	if err != nil {
		t.Fatalf("NewTapeRegistry: %v", err)
	}
	coordinator, err := ingest.NewCoordinator(logging.NewNop(), store, blobs, dedup, tapes, ingest.Options{
		SpoolDir:         cfg.Paths.SpoolDir,
		MaxBytes:         cfg.MaxUploadBytes(),
		AllowedMIMETypes: cfg.Ingest.AllowedMIMETypes,
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return coordinator
}

func TestIngestRetryAfterStorageFailureSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	local, err := blobstore.NewLocal(cfg.Paths.MediaDir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	blobs := &hookedPutProvider{Provider: local}
	failures := 1
	blobs.beforePut = func() error {
		if failures > 0 {
			failures--
			return errors.New("disk full")
		}
		return nil
	}
	coordinator := wireCoordinator(t, cfg, store, blobs, cfg.ReservationTTL())
	ctx := context.Background()

	payload := testsupport.MP4Payload("easter 1998")
	_, err = coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-40"))
	if !errors.Is(err, media.ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}

	// The failed attempt released its reservations and its catalog row
	// holds neither the fingerprint nor the tape number, so the identical
	// request now goes through.
	retry, err := coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-40"))
	if err != nil {
		t.Fatalf("retry after storage failure: %v", err)
	}
	if retry.Status != media.StatusReady {
		t.Fatalf("retry status = %s, want ready", retry.Status)
	}

	// Only the successful attempt owns the identity afterwards.
	_, err = coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-40"))
	var conflict *media.ConflictError
	if !errors.As(err, &conflict) || conflict.ExistingID != retry.ID {
		t.Fatalf("expected conflict with %s, got %v", retry.ID, err)
	}
}

func TestIngestAbortDuringPersistThenRetrySucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	local, err := blobstore.NewLocal(cfg.Paths.MediaDir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	blobs := &hookedPutProvider{Provider: local}
	blobs.beforePut = func() error {
		cancel()
		return nil
	}
	coordinator := wireCoordinator(t, cfg, store, blobs, cfg.ReservationTTL())

	payload := testsupport.MP4Payload("recital")
	_, err = coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-41"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// An abort after the catalog row was written must not strand the keys.
	blobs.beforePut = nil
	retry, err := coordinator.Ingest(context.Background(), tapeRequest(payload, "TAPE-41"))
	if err != nil {
		t.Fatalf("retry after mid-persist abort: %v", err)
	}
	if retry.Status != media.StatusReady {
		t.Fatalf("retry status = %s, want ready", retry.Status)
	}
}

func TestIngestPublishesIdentityWhenClaimLapses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	local, err := blobstore.NewLocal(cfg.Paths.MediaDir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	blobs := &hookedPutProvider{Provider: local}
	coordinator := wireCoordinator(t, cfg, store, blobs, 10*time.Millisecond)
	blobs.beforePut = func() error {
		// Outlive the reservation TTL and let the janitor reap the claims
		// while the bytes are still being written.
		time.Sleep(30 * time.Millisecond)
		coordinator.Sweep()
		return nil
	}
	ctx := context.Background()

	payload := testsupport.MP4Payload("three hour recital")
	first, err := coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-60"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// The claims lapsed mid-upload, but the identity must still be
	// published: a duplicate reports the conflict, not a storage failure.
	blobs.beforePut = nil
	_, err = coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-60"))
	if !errors.Is(err, media.ErrDuplicateContent) {
		t.Fatalf("expected ErrDuplicateContent, got %v", err)
	}
	var conflict *media.ConflictError
	if !errors.As(err, &conflict) || conflict.ExistingID != first.ID {
		t.Fatalf("conflict = %v, want reference to %s", err, first.ID)
	}
}

func TestDeleteFreesIdentityForReingestion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)
	ctx := context.Background()

	payload := testsupport.MP4Payload("graduation")
	first, err := coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-3"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := coordinator.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	second, err := coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-3"))
	if err != nil {
		t.Fatalf("re-ingest after delete: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("re-ingested asset must get a fresh identity")
	}

	deleted, err := store.GetAsset(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if !deleted.IsDeleted() {
		t.Fatal("first asset should be soft-deleted")
	}
}

func TestDeleteUnknownAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)

	err := coordinator.Delete(context.Background(), "no-such-id")
	if !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIngestPreloadedCommittedStateSurvivesRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coordinator := testsupport.NewCoordinator(t, cfg, store)
	ctx := context.Background()

	payload := testsupport.MP4Payload("wedding")
	first, err := coordinator.Ingest(ctx, tapeRequest(payload, "TAPE-5"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// A second coordinator over the same catalog simulates a restart: its
	// indexes preload committed state, so the duplicate is still caught.
	restarted := testsupport.NewCoordinator(t, cfg, store)
	_, err = restarted.Ingest(ctx, tapeRequest(payload, "TAPE-5"))
	var conflict *media.ConflictError
	if !errors.As(err, &conflict) || conflict.ExistingID != first.ID {
		t.Fatalf("expected conflict with %s after restart, got %v", first.ID, err)
	}
}
