package importer

import (
	"path/filepath"
	"strings"

	"shoebox/internal/models"
)

type fileType struct {
	kind      models.AssetKind
	mediaType string
}

// supportedTypes is the static allow list. Anything not listed is rejected
// before the store is consulted.
var supportedTypes = map[string]fileType{
	".jpg":      {models.AssetImage, "image/jpeg"},
	".jpeg":     {models.AssetImage, "image/jpeg"},
	".png":      {models.AssetImage, "image/png"},
	".gif":      {models.AssetImage, "image/gif"},
	".bmp":      {models.AssetImage, "image/bmp"},
	".tif":      {models.AssetImage, "image/tiff"},
	".tiff":     {models.AssetImage, "image/tiff"},
	".webp":     {models.AssetImage, "image/webp"},
	".pdf":      {models.AssetDocument, "application/pdf"},
	".txt":      {models.AssetText, "text/plain"},
	".text":     {models.AssetText, "text/plain"},
	".md":       {models.AssetText, "text/markdown"},
	".markdown": {models.AssetText, "text/markdown"},
	".csv":      {models.AssetText, "text/csv"},
	".mp3":      {models.AssetAudio, "audio/mpeg"},
	".m4a":      {models.AssetAudio, "audio/mp4"},
	".flac":     {models.AssetAudio, "audio/flac"},
	".ogg":      {models.AssetAudio, "audio/ogg"},
}

// Classify maps a source reference to its asset kind and media type by
// extension. ok is false for unsupported types.
func Classify(ref string) (kind models.AssetKind, mediaType string, ok bool) {
	ft, ok := supportedTypes[strings.ToLower(filepath.Ext(ref))]
	if !ok {
		return "", "", false
	}
	return ft.kind, ft.mediaType, true
}

// RemoveUnsupported splits refs into supported and rejected, preserving order.
func RemoveUnsupported(refs []string) (supported, rejected []string) {
	for _, ref := range refs {
		if _, _, ok := Classify(ref); ok {
			supported = append(supported, ref)
		} else {
			rejected = append(rejected, ref)
		}
	}
	return supported, rejected
}
