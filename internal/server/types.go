package server

import (
	"time"

	"tapevault/internal/catalog"
	"tapevault/internal/media"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// ConflictResponse extends the error body with the identity of the asset
// holding the conflicting fingerprint or tape number.
type ConflictResponse struct {
	Message    string `json:"message"`
	ExistingID string `json:"existing_id,omitempty"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the success body for POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// AssetResponse is the JSON shape of a media asset.
type AssetResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	SourceKind  string     `json:"source_kind"`
	ByteSize    int64      `json:"byte_size"`
	MIME        string     `json:"mime"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	DurationSec int64      `json:"duration_sec,omitempty"`
	Width       int64      `json:"width,omitempty"`
	Height      int64      `json:"height,omitempty"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	TapeNumber  string     `json:"tape_number,omitempty"`
	Visibility  string     `json:"visibility"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	Tags        []string   `json:"tags,omitempty"`
}

func toAssetResponse(asset *media.Asset, tags []string) AssetResponse {
	return AssetResponse{
		ID:          asset.ID,
		Kind:        string(asset.Kind),
		SourceKind:  string(asset.SourceKind),
		ByteSize:    asset.ByteSize,
		MIME:        asset.MIME,
		Title:       asset.Title,
		Description: asset.Description,
		DurationSec: asset.DurationSec,
		Width:       asset.Width,
		Height:      asset.Height,
		CapturedAt:  asset.CapturedAt,
		TapeNumber:  asset.TapeNumber,
		Visibility:  string(asset.Visibility),
		Status:      string(asset.Status),
		CreatedAt:   asset.CreatedAt,
		Tags:        tags,
	}
}

// CommentRequest is the body for POST /api/media/:id/comments.
type CommentRequest struct {
	Body string `json:"body"`
}

// CommentResponse is the JSON shape of a comment.
type CommentResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCommentResponse(comment *catalog.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		UserID:    comment.UserID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

// TagRequest is the body for POST /api/media/:id/tags.
type TagRequest struct {
	Name string `json:"name"`
}
