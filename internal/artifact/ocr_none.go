//go:build !ocr

package artifact

import "context"

// Without the ocr build tag images carry no extractable text.
const ocrAvailable = false

func recognizeText(context.Context, string) (string, error) {
	return "", ErrNothingToGenerate
}
