package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"shoebox/internal/format"
	"shoebox/internal/models"
)

// outputFormatter is nil for plain text output.
var outputFormatter format.Formatter

func structuredOutput() bool {
	return outputFormatter != nil
}

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeAssetList(assets []models.Asset) error {
	for _, a := range assets {
		if err := writePlain("%s\n", formatAssetLine(a)); err != nil {
			return err
		}
	}
	return nil
}

func writeAssetDetail(a models.Asset) error {
	lines := []string{
		fmt.Sprintf("id: %s", a.ID),
		fmt.Sprintf("name: %s", a.Name),
		fmt.Sprintf("kind: %s", a.Kind),
		fmt.Sprintf("source: %s", a.SourceRef),
		fmt.Sprintf("identity: %s", a.Identity),
		fmt.Sprintf("size: %s (%d bytes)", humanize.IBytes(uint64(a.SizeBytes)), a.SizeBytes),
		fmt.Sprintf("favourite: %t", a.Favourite),
		fmt.Sprintf("created_at: %s (%s)", formatTime(a.CreatedAt), humanize.Time(a.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(a.UpdatedAt)),
	}
	if a.MediaType != "" {
		lines = append(lines, fmt.Sprintf("media_type: %s", a.MediaType))
	}
	if a.SoftDeleted {
		lines = append(lines, "trashed: true")
	}
	if a.ThumbnailBlobID != "" {
		lines = append(lines, fmt.Sprintf("thumbnail: %s", a.ThumbnailBlobID))
	}
	if a.TextBlobID != "" {
		lines = append(lines, fmt.Sprintf("text: %s", a.TextBlobID))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatAssetLine(a models.Asset) string {
	marker := " "
	if a.Favourite {
		marker = "*"
	}
	if a.SoftDeleted {
		marker = "x"
	}
	return fmt.Sprintf("%s %s [%s] %s", marker, a.ID, a.Kind, a.Name)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
