package blobstore

import (
	"context"
	"io"
)

// PutResult describes one persisted artifact payload. Created is false when
// an object with the same digest was already present.
type PutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
	Created   bool
}

// Store is the byte storage behind derived artifacts (thumbnails and
// extracted text). Asset source files are never copied into it.
type Store interface {
	Put(ctx context.Context, r io.Reader) (PutResult, error)
	PutBytes(ctx context.Context, data []byte) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	ReadAll(ctx context.Context, key string, limit int64) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Backend is the value recorded in the blobs table for objects in a LocalCAS.
const Backend = "local_cas"
