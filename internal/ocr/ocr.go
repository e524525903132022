// Package ocr turns readout screenshots into token bundles.
//
// The only engine is Tesseract, compiled in with the "tesseract" build tag:
//
//	go build -tags tesseract ./...
//
// Without the tag New returns ErrOCRNotEnabled and callers fall back to
// bundles produced by an external recognizer.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/disintegration/imaging"
)

var (
	// ErrOCRNotEnabled is returned when no OCR engine was compiled in.
	ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags tesseract")
	// ErrUnknownEngine is returned for an engine name New does not know.
	ErrUnknownEngine = errors.New("unknown OCR engine")
	// ErrUnreadableImage is returned when the input is not a decodable image.
	ErrUnreadableImage = errors.New("unreadable image")
)

// EngineTesseract names the gosseract-backed engine.
const EngineTesseract = "tesseract"

// Recognizer produces a token bundle for one image file. Callers confirm the
// file decodes with ImageBounds before handing it over.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (*tokens.Bundle, error)
	Close() error
}

// Config selects and tunes the engine.
type Config struct {
	Engine   string
	Language string
}

// DefaultConfig returns English Tesseract.
func DefaultConfig() Config {
	return Config{Engine: EngineTesseract, Language: "eng"}
}

// New returns the configured recognizer.
func New(cfg Config) (Recognizer, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", EngineTesseract:
		if cfg.Language == "" {
			cfg.Language = "eng"
		}
		return newTesseract(cfg)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEngine, cfg.Engine)
	}
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, imagePath string) (*tokens.Bundle, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, imagePath string) (*tokens.Bundle, error) {
	return f(ctx, imagePath)
}

// Close does nothing.
func (f RecognizerFunc) Close() error { return nil }

// Word is one recognized word with its pixel box and a 0-100 confidence.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// ImageBounds decodes the image header and pixels to confirm the file is an
// image, returning its bounds.
func ImageBounds(path string) (image.Rectangle, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("%w %s: %v", ErrUnreadableImage, path, err)
	}
	return img.Bounds(), nil
}

// WordsToBundle converts engine words into a bundle. Blank words are
// dropped; each box becomes a clockwise polygon starting at its top-left
// corner, and confidences are scaled to [0, 1].
func WordsToBundle(source string, words []Word) *tokens.Bundle {
	b := &tokens.Bundle{Source: source, Texts: []string{}, Scores: []float64{}, Polys: [][][]float64{}}
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		r := w.Box.Canon()
		b.Append(text, clamp01(w.Confidence/100), tokens.Polygon{
			{X: float64(r.Min.X), Y: float64(r.Min.Y)},
			{X: float64(r.Max.X), Y: float64(r.Min.Y)},
			{X: float64(r.Max.X), Y: float64(r.Max.Y)},
			{X: float64(r.Min.X), Y: float64(r.Max.Y)},
		})
	}
	return b
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
