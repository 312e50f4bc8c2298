package sourcepolicy

import (
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/unicode/norm"

	"tapevault/internal/media"
)

// SniffLen is how many leading payload bytes content sniffing considers.
const SniffLen = 3072

// Metadata is the caller-supplied description of an upload, normalized in
// place by the selected policy before validation.
type Metadata struct {
	Kind         media.Kind
	SourceKind   media.SourceKind
	Title        string
	Description  string
	CapturedAt   *time.Time
	TapeNumber   string
	DeclaredMIME string
	Tags         []string
}

// Policy is the per-source-kind rule set.
type Policy interface {
	Kind() media.SourceKind
	// Normalize trims and canonicalizes metadata fields in place.
	Normalize(meta *Metadata)
	// Validate checks source-specific invariants on normalized metadata.
	Validate(meta *Metadata) error
}

// ForSource returns the policy variant for a source kind.
func ForSource(kind media.SourceKind) (Policy, error) {
	switch kind {
	case media.SourceVideoTape:
		return tapePolicy{}, nil
	case media.SourceICloud, media.SourceGooglePhotos, media.SourceGoogleDrive,
		media.SourceUserUpload, media.SourceGuestUpload:
		return importPolicy{kind: kind}, nil
	default:
		return nil, media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "select",
			fmt.Sprintf("unknown source kind %q", kind), nil)
	}
}

// ValidateContent runs the checks every source kind shares: the media kind
// must be known, the payload non-empty and within the cap, and the
// declared MIME type consistent with both the sniffed content and the
// asset kind. head holds the leading payload bytes (up to SniffLen).
func ValidateContent(meta *Metadata, head []byte, byteSize, maxBytes int64, allowedMIMETypes []string) error {
	if _, ok := media.ParseKind(string(meta.Kind)); !ok {
		return media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "validate",
			fmt.Sprintf("kind must be PHOTO or VIDEO, got %q", meta.Kind), nil)
	}
	if byteSize <= 0 {
		return media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "validate", "payload is empty", nil)
	}
	if maxBytes > 0 && byteSize > maxBytes {
		return media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "validate",
			fmt.Sprintf("payload of %d bytes exceeds cap of %d", byteSize, maxBytes), nil)
	}

	detected := mimetype.Detect(head)
	declared := strings.ToLower(strings.TrimSpace(meta.DeclaredMIME))
	if declared == "" {
		declared = detected.String()
	}
	if !mimeConsistent(detected, declared) {
		return media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "validate",
			fmt.Sprintf("declared type %q does not match sniffed type %q", declared, detected.String()), nil)
	}
	if !kindConsistent(meta.Kind, declared) {
		return media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "validate",
			fmt.Sprintf("content type %q does not match kind %s", declared, meta.Kind), nil)
	}
	if len(allowedMIMETypes) > 0 && !mimeAllowed(declared, allowedMIMETypes) {
		return media.Wrap(media.ErrInvalidMediaType, "sourcepolicy", "validate",
			fmt.Sprintf("content type %q is not in the allowed list", declared), nil)
	}

	meta.DeclaredMIME = declared
	return nil
}

// mimeConsistent accepts a declared type matching the sniffed type or any
// of its ancestors (e.g. a declared video/quicktime for a sniffed
// video/mp4 variant container).
func mimeConsistent(detected *mimetype.MIME, declared string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return true
		}
	}
	// Sniffing cannot tell every container apart; fall back to comparing
	// the top-level class when both agree on video/ or image/.
	detectedClass, _, _ := strings.Cut(detected.String(), "/")
	declaredClass, _, _ := strings.Cut(declared, "/")
	return detectedClass == declaredClass && (declaredClass == "video" || declaredClass == "image")
}

func kindConsistent(kind media.Kind, mime string) bool {
	switch kind {
	case media.KindVideo:
		return strings.HasPrefix(mime, "video/")
	case media.KindPhoto:
		return strings.HasPrefix(mime, "image/")
	}
	return false
}

func mimeAllowed(mime string, allowed []string) bool {
	for _, candidate := range allowed {
		if mime == candidate {
			return true
		}
	}
	return false
}

// normalizeCommon trims the free-text fields shared by all variants.
func normalizeCommon(meta *Metadata) {
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Description = strings.TrimSpace(meta.Description)
	tags := meta.Tags[:0]
	for _, tag := range meta.Tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	meta.Tags = tags
}

// normalizeTapeNumber trims and NFC-normalizes a tape number so visually
// identical values compare equal in the registry.
func normalizeTapeNumber(value string) string {
	return strings.TrimSpace(norm.NFC.String(value))
}
