package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Comment is a user remark on an asset.
type Comment struct {
	ID        int64
	MediaID   string
	UserID    string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddComment records a comment on an asset.
func (s *Store) AddComment(ctx context.Context, mediaID, userID, body string) (*Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("comment body is empty")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO comments (media_id, user_id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		mediaID,
		userID,
		body,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("comment last insert id: %w", err)
	}
	return &Comment{ID: id, MediaID: mediaID, UserID: userID, Body: body, CreatedAt: now, UpdatedAt: now}, nil
}

// Comments returns the non-deleted comments on an asset, newest first.
func (s *Store) Comments(ctx context.Context, mediaID string) ([]*Comment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, media_id, user_id, body, created_at, updated_at
         FROM comments WHERE media_id = ? AND deleted_at IS NULL ORDER BY created_at DESC`,
		mediaID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		var (
			comment Comment
			created string
			updated string
		)
		if err := rows.Scan(&comment.ID, &comment.MediaID, &comment.UserID, &comment.Body, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if t, err := parseTimeString(created); err == nil {
			comment.CreatedAt = t
		}
		if t, err := parseTimeString(updated); err == nil {
			comment.UpdatedAt = t
		}
		comments = append(comments, &comment)
	}
	return comments, rows.Err()
}
