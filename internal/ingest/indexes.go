package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tapevault/internal/catalog"
	"tapevault/internal/media"
	"tapevault/internal/reservation"
)

// DedupIndex maps content fingerprints to canonical asset identities and
// guarantees at most one live reservation or committed entry per
// fingerprint.
type DedupIndex struct {
	table *reservation.Table
}

// NewDedupIndex builds the index, preloading committed fingerprints from
// the catalog.
func NewDedupIndex(ctx context.Context, store *catalog.Store, ttl time.Duration) (*DedupIndex, error) {
	table := reservation.NewTable(ttl)
	entries, err := store.CommittedFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("preload dedup index: %w", err)
	}
	for _, entry := range entries {
		table.Restore(entry.Key, entry.Identity)
	}
	return &DedupIndex{table: table}, nil
}

// Reserve claims a fingerprint for one ingestion attempt. A conflict
// surfaces as media.ConflictError tagged ErrDuplicateContent.
func (d *DedupIndex) Reserve(fingerprint string) (*reservation.Claim, error) {
	claim, err := d.table.Reserve(fingerprint)
	if err != nil {
		var conflict *reservation.ConflictError
		if errors.As(err, &conflict) {
			return nil, &media.ConflictError{
				Marker:     media.ErrDuplicateContent,
				Key:        fingerprint,
				ExistingID: conflict.Identity,
			}
		}
		return nil, err
	}
	return claim, nil
}

// Forget releases a committed fingerprint so the bytes can be re-ingested.
func (d *DedupIndex) Forget(fingerprint string) {
	d.table.Forget(fingerprint)
}

// Restore publishes a committed fingerprint directly, bypassing Reserve.
// Used at startup preload and when a claim expired before its Commit.
func (d *DedupIndex) Restore(fingerprint, assetID string) {
	d.table.Restore(fingerprint, assetID)
}

// Lookup returns the identity committed to a fingerprint, if any.
func (d *DedupIndex) Lookup(fingerprint string) (string, bool) {
	return d.table.Lookup(fingerprint)
}

// Sweep reaps expired reservations.
func (d *DedupIndex) Sweep() int { return d.table.Sweep() }

// TapeRegistry enforces uniqueness of tape numbers among non-deleted tape
// assets. It is deliberately separate from DedupIndex: the two uniqueness
// domains are independent and must not block each other.
type TapeRegistry struct {
	table *reservation.Table
}

// NewTapeRegistry builds the registry, preloading committed tape numbers
// from the catalog.
func NewTapeRegistry(ctx context.Context, store *catalog.Store, ttl time.Duration) (*TapeRegistry, error) {
	table := reservation.NewTable(ttl)
	entries, err := store.CommittedTapeNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("preload tape registry: %w", err)
	}
	for _, entry := range entries {
		table.Restore(entry.Key, entry.Identity)
	}
	return &TapeRegistry{table: table}, nil
}

// Reserve claims a tape number for one ingestion attempt. A conflict
// surfaces as media.ConflictError tagged ErrDuplicateKey.
func (r *TapeRegistry) Reserve(tapeNumber string) (*reservation.Claim, error) {
	claim, err := r.table.Reserve(tapeNumber)
	if err != nil {
		var conflict *reservation.ConflictError
		if errors.As(err, &conflict) {
			return nil, &media.ConflictError{
				Marker:     media.ErrDuplicateKey,
				Key:        tapeNumber,
				ExistingID: conflict.Identity,
			}
		}
		return nil, err
	}
	return claim, nil
}

// Forget releases a committed tape number for reuse.
func (r *TapeRegistry) Forget(tapeNumber string) {
	r.table.Forget(tapeNumber)
}

// Restore publishes a committed tape number directly, bypassing Reserve.
func (r *TapeRegistry) Restore(tapeNumber, assetID string) {
	r.table.Restore(tapeNumber, assetID)
}

// Sweep reaps expired reservations.
func (r *TapeRegistry) Sweep() int { return r.table.Sweep() }
