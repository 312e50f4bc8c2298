package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tag is a lowercase label attachable to assets.
type Tag struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// EnsureTag returns the tag with the given name, creating it if needed.
// Names are lowercased.
func (s *Store) EnsureTag(ctx context.Context, name string) (*Tag, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, errors.New("tag name is empty")
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, normalized)
	tag, err := scanTag(row)
	if err != nil {
		return nil, err
	}
	if tag != nil {
		return tag, nil
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tags (name, created_at) VALUES (?, ?)`,
		normalized,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("tag last insert id: %w", err)
	}
	return &Tag{ID: id, Name: normalized, CreatedAt: now}, nil
}

// TagByName fetches a tag by its lowercased name, nil when absent.
func (s *Store) TagByName(ctx context.Context, name string) (*Tag, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, normalized)
	return scanTag(row)
}

// AttachTag associates a tag with an asset. Attaching twice is an error.
func (s *Store) AttachTag(ctx context.Context, mediaID string, tagID int64, createdBy string) error {
	var exists int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM media_tags WHERE media_id = ? AND tag_id = ?`,
		mediaID, tagID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check media tag: %w", err)
	}
	if exists > 0 {
		return errors.New("tag already associated with media")
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO media_tags (media_id, tag_id, created_by, created_at) VALUES (?, ?, ?, ?)`,
		mediaID,
		tagID,
		nullableString(createdBy),
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// DetachTag removes a tag association. Only the creator or an admin may
// detach; the caller enforces that with createdBy returned here.
func (s *Store) DetachTag(ctx context.Context, mediaID string, tagID int64) (createdBy string, err error) {
	var creator sql.NullString
	err = s.db.QueryRowContext(
		ctx,
		`SELECT created_by FROM media_tags WHERE media_id = ? AND tag_id = ?`,
		mediaID, tagID,
	).Scan(&creator)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("tag not found on media")
	}
	if err != nil {
		return "", fmt.Errorf("get media tag: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`DELETE FROM media_tags WHERE media_id = ? AND tag_id = ?`,
		mediaID, tagID,
	)
	if err != nil {
		return "", fmt.Errorf("detach tag: %w", err)
	}
	return creator.String, nil
}

// AssetTags returns the tag names attached to an asset.
func (s *Store) AssetTags(ctx context.Context, mediaID string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT t.name FROM tags t JOIN media_tags mt ON mt.tag_id = t.id WHERE mt.media_id = ? ORDER BY t.name`,
		mediaID,
	)
	if err != nil {
		return nil, fmt.Errorf("asset tags: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanTag(row *sql.Row) (*Tag, error) {
	var (
		tag     Tag
		created string
	)
	err := row.Scan(&tag.ID, &tag.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan tag: %w", err)
	}
	if t, err := parseTimeString(created); err == nil {
		tag.CreatedAt = t
	}
	return &tag, nil
}
