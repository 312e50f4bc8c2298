package media

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every ingestion and delivery failure.
// Callers branch with errors.Is; Wrap attaches component and operation
// context without hiding the marker.
var (
	ErrStreamRead           = errors.New("stream read failed")
	ErrInvalidMediaType     = errors.New("invalid media type")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrForbiddenField       = errors.New("forbidden field")
	ErrDuplicateContent     = errors.New("duplicate content")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrStorageFailure       = errors.New("storage failure")
	ErrNotFound             = errors.New("not found")
	ErrNotReady             = errors.New("not ready")
	ErrRangeNotSatisfiable  = errors.New("range not satisfiable")
)

// Wrap builds a classified error: marker identifies the failure class,
// component and operation say where it happened, and err (optional)
// carries the underlying cause.
func Wrap(marker error, component, operation, message string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %s: %w", marker, component, operation, message, err)
	}
	return fmt.Errorf("%w: %s/%s: %s", marker, component, operation, message)
}

// ConflictError reports a uniqueness collision: the key that collided
// and the identity of the asset already holding it.
type ConflictError struct {
	Marker     error
	Key        string
	ExistingID string
}

func (e *ConflictError) Error() string {
	if e.ExistingID != "" {
		return fmt.Sprintf("%s: %q held by asset %s", e.Marker, e.Key, e.ExistingID)
	}
	return fmt.Sprintf("%s: %q is reserved by an in-flight upload", e.Marker, e.Key)
}

func (e *ConflictError) Unwrap() error { return e.Marker }

// Retryable reports whether the failure class is transient: duplicate
// conflicts may clear once the competing upload settles, and storage
// failures may be environmental.
func Retryable(err error) bool {
	return errors.Is(err, ErrDuplicateContent) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrStorageFailure)
}
