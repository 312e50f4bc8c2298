package catalog

import (
	"database/sql"
	"time"

	"tapevault/internal/media"
)

const assetColumns = "id, kind, source_kind, fingerprint, byte_size, storage_key, mime, title, description, duration_sec, width, height, captured_at, tape_number, uploaded_by, visibility, status, error_message, created_at, updated_at, deleted_at"

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*media.Asset, error) {
	var (
		id           string
		kind         string
		sourceKind   string
		fingerprint  string
		byteSize     int64
		storageKey   string
		mime         string
		title        sql.NullString
		description  sql.NullString
		durationSec  sql.NullInt64
		width        sql.NullInt64
		height       sql.NullInt64
		capturedRaw  sql.NullString
		tapeNumber   sql.NullString
		uploadedBy   sql.NullString
		visibility   string
		statusStr    string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
		deletedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&sourceKind,
		&fingerprint,
		&byteSize,
		&storageKey,
		&mime,
		&title,
		&description,
		&durationSec,
		&width,
		&height,
		&capturedRaw,
		&tapeNumber,
		&uploadedBy,
		&visibility,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&deletedRaw,
	); err != nil {
		return nil, err
	}

	asset := &media.Asset{
		ID:           id,
		Kind:         media.Kind(kind),
		SourceKind:   media.SourceKind(sourceKind),
		Fingerprint:  fingerprint,
		ByteSize:     byteSize,
		StorageKey:   storageKey,
		MIME:         mime,
		Title:        title.String,
		Description:  description.String,
		DurationSec:  durationSec.Int64,
		Width:        width.Int64,
		Height:       height.Int64,
		TapeNumber:   tapeNumber.String,
		UploadedBy:   uploadedBy.String,
		Visibility:   media.Visibility(visibility),
		Status:       media.Status(statusStr),
		ErrorMessage: errorMessage.String,
	}

	if capturedRaw.Valid {
		if captured, err := parseTimeString(capturedRaw.String); err == nil {
			asset.CapturedAt = &captured
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		asset.UpdatedAt = updated
	}
	if deletedRaw.Valid {
		if deleted, err := parseTimeString(deletedRaw.String); err == nil {
			asset.DeletedAt = &deleted
		}
	}

	return asset, nil
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
