package models

import "time"

// Blob is an immutable stored artifact object referenced by assets.
type Blob struct {
	ID             string    `json:"id" yaml:"id"`
	SHA256         string    `json:"sha256" yaml:"sha256"`
	SizeBytes      int64     `json:"size_bytes" yaml:"size_bytes"`
	MediaType      string    `json:"media_type" yaml:"media_type"`
	StorageBackend string    `json:"storage_backend" yaml:"storage_backend"`
	BlobKey        string    `json:"blob_key" yaml:"blob_key"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// GeneratedArtifact is the output of an artifact generator for one asset,
// handed to the writer to be stored and attached.
type GeneratedArtifact struct {
	Kind      ArtifactKind
	MediaType string
	Data      []byte
}

// GCResult summarizes one artifact garbage collection pass.
type GCResult struct {
	BlobsRemoved int      `json:"blobs_removed" yaml:"blobs_removed"`
	BytesFreed   int64    `json:"bytes_freed" yaml:"bytes_freed"`
	BlobIDs      []string `json:"blob_ids" yaml:"blob_ids"`
}
