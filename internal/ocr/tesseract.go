//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/otiai10/gosseract/v2"
)

// tesseract serializes calls; a gosseract client holds one image at a time.
type tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func newTesseract(cfg Config) (Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set language %q: %w", cfg.Language, err)
	}
	return &tesseract{client: client}, nil
}

func (t *tesseract) Recognize(ctx context.Context, imagePath string) (*tokens.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// The wait for the engine may outlast the caller.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := t.client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]Word, len(boxes))
	for i, box := range boxes {
		words[i] = Word{Text: box.Word, Confidence: box.Confidence, Box: box.Box}
	}
	return WordsToBundle(imagePath, words), nil
}

func (t *tesseract) Close() error {
	return t.client.Close()
}
