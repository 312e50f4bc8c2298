package deliver

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"tapevault/internal/blobstore"
	"tapevault/internal/catalog"
	"tapevault/internal/logging"
	"tapevault/internal/media"
)

// Service opens committed asset bytes for delivery.
type Service struct {
	store  *catalog.Store
	blobs  blobstore.Provider
	logger *slog.Logger
}

// NewService creates a delivery service over the catalog and blob store.
func NewService(logger *slog.Logger, store *catalog.Store, blobs blobstore.Provider) (*Service, error) {
	if store == nil || blobs == nil {
		return nil, errors.New("delivery requires store and blobstore")
	}
	return &Service{
		store:  store,
		blobs:  blobs,
		logger: logging.WithComponent(logger, "deliver"),
	}, nil
}

// Stream is an open read of one asset. Close it when done.
type Stream struct {
	io.ReadCloser
	Asset   *media.Asset
	Start   int64
	Length  int64
	Total   int64
	Partial bool
}

// Open returns a byte stream for the identified asset, optionally limited
// to an inclusive byte range. Missing or deleted assets fail with
// ErrNotFound; assets still processing or failed with ErrNotReady; ranges
// beyond the asset's length with ErrRangeNotSatisfiable.
func (s *Service) Open(ctx context.Context, id string, rng *ByteRange) (*Stream, error) {
	asset, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, asset, rng)
}

// OpenRequest opens an asset for an HTTP request, resolving the raw
// Range header against the asset's actual size. An empty header yields
// the whole asset.
func (s *Service) OpenRequest(ctx context.Context, id, rangeHeader string) (*Stream, error) {
	asset, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	rng, err := ParseRange(rangeHeader, asset.ByteSize)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, asset, rng)
}

func (s *Service) lookup(ctx context.Context, id string) (*media.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, media.Wrap(media.ErrStorageFailure, "deliver", "open", "catalog lookup", err)
	}
	if asset == nil || asset.IsDeleted() {
		return nil, media.Wrap(media.ErrNotFound, "deliver", "open", id, nil)
	}
	if !asset.Servable() {
		return nil, media.Wrap(media.ErrNotReady, "deliver", "open", id, nil)
	}
	return asset, nil
}

func (s *Service) open(ctx context.Context, asset *media.Asset, rng *ByteRange) (*Stream, error) {
	id := asset.ID

	if rng == nil {
		reader, err := s.blobs.Open(ctx, asset.StorageKey)
		if err != nil {
			return nil, s.blobError(id, err)
		}
		return &Stream{
			ReadCloser: reader,
			Asset:      asset,
			Start:      0,
			Length:     asset.ByteSize,
			Total:      asset.ByteSize,
		}, nil
	}

	if rng.Start < 0 || rng.Start >= asset.ByteSize || rng.End < rng.Start {
		return nil, media.Wrap(media.ErrRangeNotSatisfiable, "deliver", "open", id, nil)
	}
	end := rng.End
	if end > asset.ByteSize-1 {
		end = asset.ByteSize - 1
	}
	length := end - rng.Start + 1

	reader, err := s.blobs.OpenRange(ctx, asset.StorageKey, rng.Start, length)
	if err != nil {
		return nil, s.blobError(id, err)
	}
	return &Stream{
		ReadCloser: reader,
		Asset:      asset,
		Start:      rng.Start,
		Length:     length,
		Total:      asset.ByteSize,
		Partial:    true,
	}, nil
}

func (s *Service) blobError(id string, err error) error {
	if errors.Is(err, blobstore.ErrMissing) {
		// Catalog row says ready but the bytes are gone; surface as
		// not-found and leave a trace for the operator.
		s.logger.Error("blob missing for ready asset", slog.String(logging.FieldAssetID, id))
		return media.Wrap(media.ErrNotFound, "deliver", "open", id, nil)
	}
	return media.Wrap(media.ErrStorageFailure, "deliver", "open", "open blob", err)
}
