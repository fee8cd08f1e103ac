package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestLocalCASPutOpenDelete(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	ctx := context.Background()

	first, err := cas.Put(ctx, bytes.NewBufferString("thumbnail"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if first.SHA256 == "" || !strings.HasPrefix(first.BlobKey, "sha256/") || first.SizeBytes != 9 || !first.Created {
		t.Fatalf("unexpected put result: %#v", first)
	}

	second, err := cas.PutBytes(ctx, []byte("thumbnail"))
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if first.BlobKey != second.BlobKey || first.SHA256 != second.SHA256 || second.Created {
		t.Fatalf("expected identical bytes to share an object: first=%#v second=%#v", first, second)
	}

	rc, err := cas.Open(ctx, first.BlobKey)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "thumbnail" {
		t.Fatalf("expected thumbnail, got %q", string(data))
	}

	if err := cas.Delete(ctx, first.BlobKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cas.Delete(ctx, first.BlobKey); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}
	if _, err := cas.Open(ctx, first.BlobKey); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist after delete, got %v", err)
	}
}

func TestLocalCASReadAllLimit(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	ctx := context.Background()

	res, err := cas.PutBytes(ctx, []byte("0123456789"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := cas.ReadAll(ctx, res.BlobKey, 4); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	data, err := cas.ReadAll(ctx, res.BlobKey, 10)
	if err != nil || string(data) != "0123456789" {
		t.Fatalf("expected full read, got %q (%v)", data, err)
	}
}

func TestLocalCASRejectsEscapingKeys(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../outside", "sha256/../../x"} {
		if _, err := cas.Open(context.Background(), key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestLocalCASPutHonoursCancelledContext(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cas.PutBytes(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
