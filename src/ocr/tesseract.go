package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract"
)

// TesseractEngine runs OCR locally through libtesseract.
type TesseractEngine struct {
	Language       string
	TessdataPrefix string
}

func (e TesseractEngine) Recognize(ctx context.Context, imageData []byte) (string, error) {
	return recognizeWithContext(ctx, func() (string, error) {
		client := gosseract.NewClient()
		defer client.Close()

		if e.TessdataPrefix != "" {
			if err := client.SetTessdataPrefix(e.TessdataPrefix); err != nil {
				return "", fmt.Errorf("failed to set tessdata prefix: %w", err)
			}
		}
		lang := e.Language
		if lang == "" {
			lang = "eng"
		}
		if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			return "", fmt.Errorf("failed to set language %q: %w", lang, err)
		}
		if err := client.SetImageFromBytes(imageData); err != nil {
			return "", fmt.Errorf("failed to load image: %w", err)
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("tesseract failed: %w", err)
		}
		return text, nil
	})
}
