package media

import (
	"strings"
	"time"
)

// Kind classifies an asset's payload.
type Kind string

const (
	KindPhoto Kind = "PHOTO"
	KindVideo Kind = "VIDEO"
)

// ParseKind maps a string onto a Kind, case-insensitively.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(value))) {
	case KindPhoto:
		return KindPhoto, true
	case KindVideo:
		return KindVideo, true
	}
	return "", false
}

// SourceKind identifies where an asset came from.
type SourceKind string

const (
	SourceVideoTape    SourceKind = "VIDEOTAPE"
	SourceICloud       SourceKind = "ICLOUD"
	SourceGooglePhotos SourceKind = "GOOGLE_PHOTOS"
	SourceGoogleDrive  SourceKind = "GOOGLE_DRIVE"
	SourceUserUpload   SourceKind = "USER_UPLOAD"
	SourceGuestUpload  SourceKind = "GUEST_UPLOAD"
)

// ParseSourceKind maps a string onto a SourceKind, case-insensitively.
func ParseSourceKind(value string) (SourceKind, bool) {
	switch SourceKind(strings.ToUpper(strings.TrimSpace(value))) {
	case SourceVideoTape:
		return SourceVideoTape, true
	case SourceICloud:
		return SourceICloud, true
	case SourceGooglePhotos:
		return SourceGooglePhotos, true
	case SourceGoogleDrive:
		return SourceGoogleDrive, true
	case SourceUserUpload:
		return SourceUserUpload, true
	case SourceGuestUpload:
		return SourceGuestUpload, true
	}
	return "", false
}

// RequiresTapeNumber reports whether assets from this source carry a
// mandatory tape number.
func (k SourceKind) RequiresTapeNumber() bool {
	return k == SourceVideoTape
}

// Status is an asset's lifecycle state. Assets are born processing and
// settle in exactly one terminal state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// CanTransition reports whether moving from s to the target state is
// legal. Only processing rows move; terminal states never revert.
func (s Status) CanTransition(to Status) bool {
	return s == StatusProcessing && (to == StatusReady || to == StatusFailed)
}

// Visibility controls who can see an asset.
type Visibility string

const (
	VisibilityFamily  Visibility = "FAMILY"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Asset is one catalogued media item.
type Asset struct {
	ID           string
	Kind         Kind
	SourceKind   SourceKind
	Fingerprint  string
	ByteSize     int64
	StorageKey   string
	MIME         string
	Title        string
	Description  string
	DurationSec  int64
	Width        int64
	Height       int64
	CapturedAt   *time.Time
	TapeNumber   string
	UploadedBy   string
	Visibility   Visibility
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsDeleted reports whether the asset has been soft-deleted.
func (a *Asset) IsDeleted() bool { return a.DeletedAt != nil }

// Servable reports whether the asset's bytes may be delivered: it must
// be ready and not deleted.
func (a *Asset) Servable() bool {
	return a.Status == StatusReady && !a.IsDeleted()
}
