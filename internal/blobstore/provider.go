package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrExists is returned by Put when the key already holds an object.
var ErrExists = errors.New("blob already exists")

// ErrMissing is returned when a key holds no object.
var ErrMissing = errors.New("blob not found")

// Provider abstracts byte storage operations.
type Provider interface {
	// Put writes data under key. Keys are write-once; a second Put on the
	// same key fails with ErrExists.
	Put(ctx context.Context, key string, reader io.Reader) error
	// Open returns a reader over the whole object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// OpenRange returns a reader over length bytes starting at offset.
	OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)
	// Delete removes the object at key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
}
