package contentaddr_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"tapevault/internal/contentaddr"
)

func TestSpoolFingerprintMatchesContent(t *testing.T) {
	payload := []byte("family reunion 1994")
	want := sha256.Sum256(payload)

	digest, err := contentaddr.Spool(context.Background(), bytes.NewReader(payload), t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("Spool: %v", err)
	}
	defer digest.Remove()

	if digest.Fingerprint != hex.EncodeToString(want[:]) {
		t.Fatalf("fingerprint = %s, want %s", digest.Fingerprint, hex.EncodeToString(want[:]))
	}
	if digest.ByteSize != int64(len(payload)) {
		t.Fatalf("byte size = %d, want %d", digest.ByteSize, len(payload))
	}

	reader, err := digest.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()
	stored, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read spool: %v", err)
	}
	if !bytes.Equal(stored, payload) {
		t.Fatal("spooled bytes differ from input")
	}
}

func TestSpoolIdenticalStreamsAgree(t *testing.T) {
	dir := t.TempDir()
	first, err := contentaddr.Spool(context.Background(), strings.NewReader("same bytes"), dir, 1<<20)
	if err != nil {
		t.Fatalf("Spool: %v", err)
	}
	defer first.Remove()
	second, err := contentaddr.Spool(context.Background(), strings.NewReader("same bytes"), dir, 1<<20)
	if err != nil {
		t.Fatalf("Spool: %v", err)
	}
	defer second.Remove()

	if first.Fingerprint != second.Fingerprint {
		t.Fatalf("fingerprints differ: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
}

func TestSpoolRejectsOversizedStream(t *testing.T) {
	dir := t.TempDir()
	_, err := contentaddr.Spool(context.Background(), strings.NewReader("0123456789"), dir, 4)
	if !errors.Is(err, contentaddr.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read spool dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected spool left %d files behind", len(entries))
	}
}

func TestSpoolObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := contentaddr.Spool(ctx, strings.NewReader("bytes"), t.TempDir(), 1<<20)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHeadReturnsLeadingBytes(t *testing.T) {
	digest, err := contentaddr.Spool(context.Background(), strings.NewReader("abcdefgh"), t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("Spool: %v", err)
	}
	defer digest.Remove()

	head, err := digest.Head(4)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if string(head) != "abcd" {
		t.Fatalf("head = %q, want abcd", head)
	}

	// Asking for more than the payload holds returns everything.
	all, err := digest.Head(64)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if string(all) != "abcdefgh" {
		t.Fatalf("head = %q, want full payload", all)
	}
}

func TestStorageKeyShardsByPrefix(t *testing.T) {
	if got := contentaddr.StorageKey("abcdef"); got != "ab/abcdef" {
		t.Fatalf("StorageKey = %q, want ab/abcdef", got)
	}
	if got := contentaddr.StorageKey("x"); got != "x" {
		t.Fatalf("StorageKey = %q, want x", got)
	}
}
