package models

import (
	"fmt"
	"strings"
	"time"
)

// AssetKind classifies an asset by the kind of content it holds.
type AssetKind string

const (
	AssetImage    AssetKind = "image"
	AssetDocument AssetKind = "document"
	AssetText     AssetKind = "text"
	AssetAudio    AssetKind = "audio"
)

var validAssetKinds = map[AssetKind]struct{}{
	AssetImage:    {},
	AssetDocument: {},
	AssetText:     {},
	AssetAudio:    {},
}

// Asset is one imported media item and its derived artifact references.
type Asset struct {
	ID              string    `json:"id" yaml:"id"`
	SourceRef       string    `json:"source_ref" yaml:"source_ref"`
	Identity        string    `json:"identity" yaml:"identity"`
	Name            string    `json:"name" yaml:"name"`
	Kind            AssetKind `json:"kind" yaml:"kind"`
	MediaType       string    `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	SizeBytes       int64     `json:"size_bytes" yaml:"size_bytes"`
	Favourite       bool      `json:"favourite" yaml:"favourite"`
	SoftDeleted     bool      `json:"soft_deleted" yaml:"soft_deleted"`
	ThumbnailBlobID string    `json:"thumbnail_blob_id,omitempty" yaml:"thumbnail_blob_id,omitempty"`
	TextBlobID      string    `json:"text_blob_id,omitempty" yaml:"text_blob_id,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// AssetCandidate is a prepared, not yet persisted asset produced by the importer.
type AssetCandidate struct {
	SourceRef string
	Identity  string
	Name      string
	Kind      AssetKind
	MediaType string
	SizeBytes int64
}

// ArtifactKind names the derived artifact slots an asset carries.
type ArtifactKind string

const (
	ArtifactThumbnail ArtifactKind = "thumbnail"
	ArtifactText      ArtifactKind = "text"
)

func IsValidAssetKind(kind AssetKind) bool {
	_, ok := validAssetKinds[kind]
	return ok
}

func ParseAssetKind(raw string) (AssetKind, error) {
	value := AssetKind(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("asset kind is required")
	}
	if !IsValidAssetKind(value) {
		return "", fmt.Errorf("invalid asset kind: %s", value)
	}
	return value, nil
}

func ParseArtifactKind(raw string) (ArtifactKind, error) {
	switch value := ArtifactKind(strings.ToLower(strings.TrimSpace(raw))); value {
	case ArtifactThumbnail, ArtifactText:
		return value, nil
	case "":
		return "", fmt.Errorf("artifact kind is required")
	default:
		return "", fmt.Errorf("invalid artifact kind: %s", value)
	}
}
