package contentaddr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"tapevault/internal/media"
)

// ErrTooLarge marks a stream that exceeded the configured size cap.
var ErrTooLarge = errors.New("payload exceeds size limit")

// Digest is the result of fingerprinting one stream.
type Digest struct {
	Fingerprint string // lowercase hex SHA-256
	ByteSize    int64
	SpoolPath   string // temp file holding the consumed bytes
}

// Remove deletes the spool file. Safe to call more than once.
func (d *Digest) Remove() {
	if d == nil || d.SpoolPath == "" {
		return
	}
	_ = os.Remove(d.SpoolPath)
	d.SpoolPath = ""
}

// Open returns a reader over the spooled bytes.
func (d *Digest) Open() (io.ReadCloser, error) {
	file, err := os.Open(d.SpoolPath)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	return file, nil
}

// Head returns up to n leading bytes of the spooled payload, for content
// sniffing.
func (d *Digest) Head(n int) ([]byte, error) {
	file, err := d.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read spool head: %w", err)
	}
	return buf[:read], nil
}

// Spool consumes reader in a single pass, hashing while writing the bytes
// to a temp file under spoolDir. Cancellation is observed between reads.
// The returned Digest owns the spool file; callers must Remove it.
func Spool(ctx context.Context, reader io.Reader, spoolDir string, maxBytes int64) (*Digest, error) {
	if reader == nil {
		return nil, media.Wrap(media.ErrStreamRead, "contentaddr", "spool", "reader is nil", nil)
	}
	if maxBytes <= 0 {
		return nil, media.Wrap(media.ErrStorageFailure, "contentaddr", "spool", "size cap must be positive", nil)
	}

	spool, err := os.CreateTemp(spoolDir, "ingest-*.spool")
	if err != nil {
		return nil, media.Wrap(media.ErrStorageFailure, "contentaddr", "spool", "create temp file", err)
	}
	spoolPath := spool.Name()
	keep := false
	defer func() {
		_ = spool.Close()
		if !keep {
			_ = os.Remove(spoolPath)
		}
	}()

	hasher := sha256.New()
	limited := &io.LimitedReader{R: &cancelReader{ctx: ctx, r: reader}, N: maxBytes + 1}
	written, err := io.Copy(io.MultiWriter(spool, hasher), limited)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, media.Wrap(media.ErrStreamRead, "contentaddr", "spool", "copy stream", err)
	}
	if written > maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrTooLarge, maxBytes)
	}
	if err := spool.Sync(); err != nil {
		return nil, media.Wrap(media.ErrStorageFailure, "contentaddr", "spool", "sync temp file", err)
	}

	keep = true
	return &Digest{
		Fingerprint: hex.EncodeToString(hasher.Sum(nil)),
		ByteSize:    written,
		SpoolPath:   spoolPath,
	}, nil
}

// StorageKey derives the blob-store key for a fingerprint. A two-character
// prefix directory keeps any single directory from growing unbounded.
func StorageKey(fingerprint string) string {
	if len(fingerprint) < 2 {
		return fingerprint
	}
	return path.Join(fingerprint[:2], fingerprint)
}

// cancelReader makes stream reads a cancellation point.
type cancelReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *cancelReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
