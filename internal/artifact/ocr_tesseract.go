//go:build ocr

package artifact

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

const ocrAvailable = true

// recognizeText runs Tesseract over the image at path.
func recognizeText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
