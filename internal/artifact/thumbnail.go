package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/dhowden/tag"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"shoebox/internal/access"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
)

const (
	DefaultThumbnailMaxEdge = 256
	DefaultMaxImagePixels   = 40_000_000
	thumbnailMediaType      = "image/png"
)

// ErrImageTooLarge is returned for images whose declared dimensions exceed
// the decode budget. Nothing is decoded in that case.
var ErrImageTooLarge = errors.New("image exceeds pixel budget")

// Thumbnailer renders a PNG no larger than MaxEdge on either side from an
// image, or from the cover art embedded in an audio file. Sources declaring
// more than MaxPixels pixels are rejected before decoding.
type Thumbnailer struct {
	MaxEdge   int
	MaxPixels int
}

func (t Thumbnailer) Kind() models.ArtifactKind { return models.ArtifactThumbnail }

func (t Thumbnailer) Supports(asset models.Asset) bool {
	return asset.Kind == models.AssetImage || asset.Kind == models.AssetAudio
}

func (t Thumbnailer) Generate(ctx context.Context, asset models.Asset, tok *access.Token) (models.GeneratedArtifact, error) {
	var zero models.GeneratedArtifact
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	f, err := tok.Open()
	if err != nil {
		return zero, err
	}
	defer f.Close()

	var src image.Image
	switch asset.Kind {
	case models.AssetAudio:
		src, err = coverArt(f, t.maxPixels())
	default:
		src, err = decodeBounded(f, t.maxPixels())
	}
	if errors.Is(err, ErrNothingToGenerate) {
		return zero, err
	}
	if err != nil {
		return zero, liberr.Artifact(asset.ID, err, liberr.CodeDecodeFailed)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaleToFit(src, t.maxEdge())); err != nil {
		return zero, liberr.Artifact(asset.ID, fmt.Errorf("encode thumbnail: %w", err), liberr.CodeDecodeFailed)
	}
	return models.GeneratedArtifact{
		Kind:      models.ArtifactThumbnail,
		MediaType: thumbnailMediaType,
		Data:      buf.Bytes(),
	}, nil
}

func (t Thumbnailer) maxEdge() int {
	if t.MaxEdge <= 0 {
		return DefaultThumbnailMaxEdge
	}
	return t.MaxEdge
}

func (t Thumbnailer) maxPixels() int {
	if t.MaxPixels <= 0 {
		return DefaultMaxImagePixels
	}
	return t.MaxPixels
}

// checkImageBounds reads only the image header from r and rejects images
// larger than maxPixels. r is rewound to the start on success.
func checkImageBounds(r io.ReadSeeker, maxPixels int) error {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("decode image header: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind image: %w", err)
	}
	return nil
}

func decodeBounded(r io.ReadSeeker, maxPixels int) (image.Image, error) {
	if err := checkImageBounds(r, maxPixels); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func coverArt(r io.ReadSeeker, maxPixels int) (image.Image, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, ErrNothingToGenerate
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, ErrNothingToGenerate
	}
	img, err := decodeBounded(bytes.NewReader(pic.Data), maxPixels)
	if err != nil {
		return nil, fmt.Errorf("cover art: %w", err)
	}
	return img, nil
}

// scaleToFit shrinks src so neither side exceeds maxEdge, keeping the aspect
// ratio. Smaller images are returned unchanged.
func scaleToFit(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}
	var dw, dh int
	if w >= h {
		dw = maxEdge
		dh = max(1, h*maxEdge/w)
	} else {
		dh = maxEdge
		dw = max(1, w*maxEdge/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
