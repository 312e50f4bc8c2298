package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"tapevault/internal/blobstore"
	"tapevault/internal/catalog"
	"tapevault/internal/contentaddr"
	"tapevault/internal/logging"
	"tapevault/internal/media"
	"tapevault/internal/reservation"
	"tapevault/internal/sourcepolicy"
)

// Options configures a Coordinator.
type Options struct {
	SpoolDir         string
	MaxBytes         int64
	AllowedMIMETypes []string
}

// Coordinator runs the ingestion pipeline end to end.
type Coordinator struct {
	store  *catalog.Store
	blobs  blobstore.Provider
	dedup  *DedupIndex
	tapes  *TapeRegistry
	opts   Options
	logger *slog.Logger
}

// NewCoordinator wires the pipeline together.
func NewCoordinator(logger *slog.Logger, store *catalog.Store, blobs blobstore.Provider, dedup *DedupIndex, tapes *TapeRegistry, opts Options) (*Coordinator, error) {
	if store == nil || blobs == nil || dedup == nil || tapes == nil {
		return nil, errors.New("coordinator requires store, blobstore, dedup index, and tape registry")
	}
	return &Coordinator{
		store:  store,
		blobs:  blobs,
		dedup:  dedup,
		tapes:  tapes,
		opts:   opts,
		logger: logging.WithComponent(logger, "ingest"),
	}, nil
}

// Request describes one upload.
type Request struct {
	Meta       sourcepolicy.Metadata
	Body       io.Reader
	UploadedBy string
	Visibility media.Visibility
}

// Ingest consumes the stream once, decides accept-or-reject, and returns
// the committed asset on success. Every failure path releases any
// reservations taken and removes partial bytes; on rejection the returned
// error classifies the cause via the media sentinels.
func (c *Coordinator) Ingest(ctx context.Context, req Request) (*media.Asset, error) {
	// ADDRESSING: fingerprint while spooling. No reservations exist yet,
	// so a broken stream aborts without cleanup beyond the spool itself.
	digest, err := contentaddr.Spool(ctx, req.Body, c.opts.SpoolDir, c.opts.MaxBytes)
	if err != nil {
		if errors.Is(err, contentaddr.ErrTooLarge) {
			return nil, media.Wrap(media.ErrInvalidMediaType, "ingest", "addressing", err.Error(), nil)
		}
		return nil, err
	}
	defer digest.Remove()

	// VALIDATING: policy normalization then source-specific and common
	// content checks, all before any uniqueness state is touched.
	policy, err := sourcepolicy.ForSource(req.Meta.SourceKind)
	if err != nil {
		return nil, err
	}
	meta := req.Meta
	policy.Normalize(&meta)
	if err := policy.Validate(&meta); err != nil {
		return nil, err
	}
	head, err := digest.Head(sourcepolicy.SniffLen)
	if err != nil {
		return nil, media.Wrap(media.ErrStreamRead, "ingest", "validating", "reread spool head", err)
	}
	if err := sourcepolicy.ValidateContent(&meta, head, digest.ByteSize, c.opts.MaxBytes, c.opts.AllowedMIMETypes); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// RESERVING: fingerprint before tape number, always. The fixed order
	// prevents lock inversion between attempts racing on swapped keys.
	fpClaim, err := c.dedup.Reserve(digest.Fingerprint)
	if err != nil {
		return nil, err
	}
	defer fpClaim.Release()

	var tapeClaim *reservation.Claim
	if meta.SourceKind.RequiresTapeNumber() {
		tapeClaim, err = c.tapes.Reserve(meta.TapeNumber)
		if err != nil {
			return nil, err
		}
		defer tapeClaim.Release()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// PERSISTING: catalog row first (processing), then bytes.
	asset := &media.Asset{
		ID:          uuid.NewString(),
		Kind:        meta.Kind,
		SourceKind:  meta.SourceKind,
		Fingerprint: digest.Fingerprint,
		ByteSize:    digest.ByteSize,
		StorageKey:  contentaddr.StorageKey(digest.Fingerprint),
		MIME:        meta.DeclaredMIME,
		Title:       meta.Title,
		Description: meta.Description,
		CapturedAt:  meta.CapturedAt,
		TapeNumber:  meta.TapeNumber,
		UploadedBy:  req.UploadedBy,
		Visibility:  req.Visibility,
		Status:      media.StatusProcessing,
	}
	if asset.Visibility == "" {
		asset.Visibility = media.VisibilityFamily
	}
	if err := c.store.InsertAsset(ctx, asset); err != nil {
		return nil, media.Wrap(media.ErrStorageFailure, "ingest", "persisting", "insert catalog row", err)
	}

	if err := c.persistBytes(ctx, asset, digest); err != nil {
		c.fail(asset.ID, err)
		return nil, err
	}

	// Commit: bytes are durable, promote and publish the identity.
	if err := c.store.MarkReady(ctx, asset.ID); err != nil {
		_ = c.blobs.Delete(context.WithoutCancel(ctx), asset.StorageKey)
		c.fail(asset.ID, err)
		return nil, media.Wrap(media.ErrStorageFailure, "ingest", "commit", "mark ready", err)
	}
	if err := fpClaim.Commit(asset.ID); err != nil {
		// The claim expired during a long upload and was reaped. The row is
		// already ready, so publish the identity directly: a duplicate must
		// see a conflict, not a bare constraint failure.
		c.dedup.Restore(asset.Fingerprint, asset.ID)
		c.logger.Warn("fingerprint claim lapsed before commit",
			slog.String(logging.FieldAssetID, asset.ID), logging.Error(err))
	}
	if tapeClaim != nil {
		if err := tapeClaim.Commit(asset.ID); err != nil {
			c.tapes.Restore(asset.TapeNumber, asset.ID)
			c.logger.Warn("tape claim lapsed before commit",
				slog.String(logging.FieldAssetID, asset.ID), logging.Error(err))
		}
	}
	asset.Status = media.StatusReady

	c.logger.Info("asset ingested",
		slog.String(logging.FieldAssetID, asset.ID),
		slog.String(logging.FieldFingerprint, asset.Fingerprint),
		slog.String(logging.FieldSourceKind, string(asset.SourceKind)),
		slog.Int64("byte_size", asset.ByteSize),
	)
	return asset, nil
}

func (c *Coordinator) persistBytes(ctx context.Context, asset *media.Asset, digest *contentaddr.Digest) error {
	spool, err := digest.Open()
	if err != nil {
		return media.Wrap(media.ErrStorageFailure, "ingest", "persisting", "reopen spool", err)
	}
	defer spool.Close()

	if err := c.blobs.Put(ctx, asset.StorageKey, spool); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Aborted mid-write; the provider already discarded the temp
			// file, nothing is visible under the key.
			return err
		}
		return media.Wrap(media.ErrStorageFailure, "ingest", "persisting", "write blob", err)
	}
	return nil
}

// fail parks the catalog row in failed state. Runs detached from the
// request context so a cancelled upload still records its outcome.
func (c *Coordinator) fail(assetID string, cause error) {
	if err := c.store.MarkFailed(context.Background(), assetID, cause.Error()); err != nil {
		c.logger.Error("mark asset failed",
			slog.String(logging.FieldAssetID, assetID), logging.Error(err))
	}
}

// Delete soft-deletes an asset, synchronously releasing its fingerprint
// and tape number so the values become reusable, and removes the stored
// bytes.
func (c *Coordinator) Delete(ctx context.Context, assetID string) error {
	asset, err := c.store.SoftDelete(ctx, assetID)
	if err != nil {
		return media.Wrap(media.ErrStorageFailure, "ingest", "delete", "soft delete", err)
	}
	if asset == nil {
		return media.Wrap(media.ErrNotFound, "ingest", "delete", assetID, nil)
	}

	c.dedup.Forget(asset.Fingerprint)
	if asset.TapeNumber != "" {
		c.tapes.Forget(asset.TapeNumber)
	}
	if err := c.blobs.Delete(ctx, asset.StorageKey); err != nil {
		c.logger.Warn("delete blob after soft delete",
			slog.String(logging.FieldAssetID, assetID), logging.Error(err))
	}

	c.logger.Info("asset deleted",
		slog.String(logging.FieldAssetID, assetID),
		slog.String(logging.FieldFingerprint, asset.Fingerprint))
	return nil
}

// Sweep reaps expired reservations in both indexes and returns the total
// removed. Called periodically by the daemon janitor.
func (c *Coordinator) Sweep() int {
	return c.dedup.Sweep() + c.tapes.Sweep()
}
