package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tapevault/internal/media"
)

// InsertAsset persists a new asset row. The asset arrives in
// StatusProcessing with identity, fingerprint, and storage key assigned.
func (s *Store) InsertAsset(ctx context.Context, asset *media.Asset) error {
	if asset == nil {
		return errors.New("asset is nil")
	}
	if asset.Status != media.StatusProcessing {
		return fmt.Errorf("new assets must start in %s, got %s", media.StatusProcessing, asset.Status)
	}
	now := time.Now().UTC()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO media_assets (
            id, kind, source_kind, fingerprint, byte_size, storage_key, mime,
            title, description, duration_sec, width, height, captured_at,
            tape_number, uploaded_by, visibility, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID,
		string(asset.Kind),
		string(asset.SourceKind),
		asset.Fingerprint,
		asset.ByteSize,
		asset.StorageKey,
		asset.MIME,
		nullableString(asset.Title),
		nullableString(asset.Description),
		nullableInt64(asset.DurationSec),
		nullableInt64(asset.Width),
		nullableInt64(asset.Height),
		nullableTime(asset.CapturedAt),
		nullableString(asset.TapeNumber),
		nullableString(asset.UploadedBy),
		string(asset.Visibility),
		string(asset.Status),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetAsset fetches an asset by identity, including soft-deleted rows.
func (s *Store) GetAsset(ctx context.Context, id string) (*media.Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM media_assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// FindByFingerprint returns the asset holding a fingerprint. Deleted and
// failed rows do not hold their keys and are skipped.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*media.Asset, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE fingerprint = ? AND deleted_at IS NULL AND status != ? LIMIT 1`,
		fingerprint, string(media.StatusFailed),
	)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return asset, nil
}

// FindByTapeNumber returns the non-deleted asset holding a tape number.
func (s *Store) FindByTapeNumber(ctx context.Context, tapeNumber string) (*media.Asset, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE tape_number = ? AND deleted_at IS NULL LIMIT 1`,
		tapeNumber,
	)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by tape number: %w", err)
	}
	return asset, nil
}

// MarkReady promotes a processing asset to ready. The guard on the current
// status keeps terminal states from reverting.
func (s *Store) MarkReady(ctx context.Context, id string) error {
	return s.transition(ctx, id, media.StatusReady, "")
}

// MarkFailed parks a processing asset in failed with a reason.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	return s.transition(ctx, id, media.StatusFailed, reason)
}

func (s *Store) transition(ctx context.Context, id string, to media.Status, reason string) error {
	if !media.StatusProcessing.CanTransition(to) {
		return fmt.Errorf("illegal transition to %s", to)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE media_assets SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		string(to),
		nullableString(reason),
		formatTime(time.Now().UTC()),
		id,
		string(media.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("transition asset to %s: %w", to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("asset %s is not in %s", id, media.StatusProcessing)
	}
	return nil
}

// SoftDelete marks an asset deleted. The partial unique indexes stop
// covering the row, so its fingerprint and tape number become reusable.
func (s *Store) SoftDelete(ctx context.Context, id string) (*media.Asset, error) {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil || asset.IsDeleted() {
		return nil, nil
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE media_assets SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(now),
		formatTime(now),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("soft delete asset: %w", err)
	}
	asset.DeletedAt = &now
	return asset, nil
}

// AssetFilter narrows ListAssets results.
type AssetFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	SourceKind media.SourceKind
	TapeNumber string
	TagID      int64
	Offset     int
	Limit      int
}

// ListAssets returns non-deleted assets matching the filter, newest first.
func (s *Store) ListAssets(ctx context.Context, filter AssetFilter) ([]*media.Asset, error) {
	var (
		conditions = []string{"a.deleted_at IS NULL"}
		args       []any
	)
	query := `SELECT ` + prefixColumns("a", assetColumns) + ` FROM media_assets a`
	if filter.TagID != 0 {
		query += ` JOIN media_tags mt ON mt.media_id = a.id`
		conditions = append(conditions, "mt.tag_id = ?")
		args = append(args, filter.TagID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "a.captured_at >= ?")
		args = append(args, formatTime(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "a.captured_at <= ?")
		args = append(args, formatTime(*filter.DateTo))
	}
	if filter.SourceKind != "" {
		conditions = append(conditions, "a.source_kind = ?")
		args = append(args, string(filter.SourceKind))
	}
	if filter.TapeNumber != "" {
		conditions = append(conditions, "a.tape_number = ?")
		args = append(args, filter.TapeNumber)
	}
	query += ` WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY a.created_at DESC`

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*media.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// CommittedEntry pairs a uniqueness key with its owning asset identity.
type CommittedEntry struct {
	Key      string
	Identity string
}

// CommittedFingerprints returns fingerprint→identity for every ready,
// non-deleted asset, for reloading the dedup index at startup.
func (s *Store) CommittedFingerprints(ctx context.Context) ([]CommittedEntry, error) {
	return s.committedEntries(ctx,
		`SELECT fingerprint, id FROM media_assets WHERE deleted_at IS NULL AND status = ?`)
}

// CommittedTapeNumbers returns tape number→identity for every ready,
// non-deleted tape asset.
func (s *Store) CommittedTapeNumbers(ctx context.Context) ([]CommittedEntry, error) {
	return s.committedEntries(ctx,
		`SELECT tape_number, id FROM media_assets WHERE deleted_at IS NULL AND status = ? AND tape_number IS NOT NULL`)
}

func (s *Store) committedEntries(ctx context.Context, query string) ([]CommittedEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, string(media.StatusReady))
	if err != nil {
		return nil, fmt.Errorf("load committed entries: %w", err)
	}
	defer rows.Close()

	var entries []CommittedEntry
	for rows.Next() {
		var entry CommittedEntry
		if err := rows.Scan(&entry.Key, &entry.Identity); err != nil {
			return nil, fmt.Errorf("scan committed entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate committed entries: %w", err)
	}
	return entries, nil
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = prefix + "." + part
	}
	return strings.Join(parts, ", ")
}
