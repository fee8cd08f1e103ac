package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dhowden/tag"
	"github.com/ledongthuc/pdf"

	"shoebox/internal/access"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
)

const (
	DefaultTextMaxBytes = 64 * 1024
	textMediaType       = "text/plain; charset=utf-8"
)

// TextScanner extracts searchable UTF-8 text: the content of text files, the
// text layer of PDFs, the tags of audio files and, in builds with the ocr
// tag, text recognized in images. Output is capped at MaxBytes without
// splitting a rune. Images above MaxPixels are rejected before recognition.
type TextScanner struct {
	MaxBytes  int
	MaxPixels int
}

func (s TextScanner) Kind() models.ArtifactKind { return models.ArtifactText }

func (s TextScanner) Supports(asset models.Asset) bool {
	switch asset.Kind {
	case models.AssetText, models.AssetAudio:
		return true
	case models.AssetDocument:
		return isPDF(asset)
	case models.AssetImage:
		return ocrAvailable
	default:
		return false
	}
}

func (s TextScanner) Generate(ctx context.Context, asset models.Asset, tok *access.Token) (models.GeneratedArtifact, error) {
	var zero models.GeneratedArtifact
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	f, err := tok.Open()
	if err != nil {
		return zero, err
	}
	defer f.Close()

	limit := s.maxBytes()
	var text string
	switch asset.Kind {
	case models.AssetText:
		text, err = readCapped(f, limit)
	case models.AssetDocument:
		text, err = pdfText(f, tok.Size(), limit)
	case models.AssetAudio:
		text, err = audioText(f)
	case models.AssetImage:
		text, err = s.imageText(ctx, f, tok.Path())
	default:
		return zero, ErrNothingToGenerate
	}
	if errors.Is(err, ErrNothingToGenerate) {
		return zero, err
	}
	if err != nil {
		return zero, liberr.Artifact(asset.ID, err, liberr.CodeExtractFailed)
	}

	text = strings.TrimSpace(truncateUTF8(strings.ToValidUTF8(text, "�"), limit))
	if text == "" {
		return zero, ErrNothingToGenerate
	}
	return models.GeneratedArtifact{
		Kind:      models.ArtifactText,
		MediaType: textMediaType,
		Data:      []byte(text),
	}, nil
}

func (s TextScanner) maxBytes() int {
	if s.MaxBytes <= 0 {
		return DefaultTextMaxBytes
	}
	return s.MaxBytes
}

func (s TextScanner) maxPixels() int {
	if s.MaxPixels <= 0 {
		return DefaultMaxImagePixels
	}
	return s.MaxPixels
}

func (s TextScanner) imageText(ctx context.Context, f io.ReadSeeker, path string) (string, error) {
	if !ocrAvailable {
		return "", ErrNothingToGenerate
	}
	if err := checkImageBounds(f, s.maxPixels()); err != nil {
		return "", err
	}
	return recognizeText(ctx, path)
}

func isPDF(asset models.Asset) bool {
	return asset.MediaType == "application/pdf" || strings.EqualFold(filepath.Ext(asset.SourceRef), ".pdf")
}

// readCapped reads a little past limit so truncation can land on a rune
// boundary.
func readCapped(r io.Reader, limit int) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit+utf8.UTFMax)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func pdfText(r io.ReaderAt, size int64, limit int) (string, error) {
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return readCapped(plain, limit)
}

func audioText(r io.ReadSeeker) (string, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return "", nil
		}
		return "", fmt.Errorf("read tags: %w", err)
	}
	var lines []string
	for _, v := range []string{m.Title(), m.Artist(), m.AlbumArtist(), m.Album(), m.Genre(), m.Lyrics()} {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
