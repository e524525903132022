// Package tokens normalizes raw OCR output into positioned text tokens.
//
// An OCR engine reports three parallel sequences per image: the recognized
// strings, their confidence scores and their bounding polygons. Ingest zips
// them into Token values anchored at the first vertex of each polygon, in
// image pixel coordinates (origin top-left, y grows downward).
package tokens

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedInput is returned when the parallel OCR sequences cannot be
// zipped into tokens. It is fatal for the current image.
var ErrMalformedInput = errors.New("malformed OCR input")

// Point is a polygon vertex in image pixel coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Polygon is a token's bounding polygon as reported by the recognizer.
type Polygon []Point

// Anchor returns the first vertex, the token's representative position.
func (p Polygon) Anchor() (Point, bool) {
	if len(p) == 0 {
		return Point{}, false
	}
	return p[0], true
}

// Token is one recognized text fragment.
type Token struct {
	Text       string  `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
}

// Ingest zips the three parallel sequences into an ordered token slice.
// Text is trimmed of surrounding whitespace; everything else is copied as is.
func Ingest(texts []string, confidences []float64, polygons []Polygon) ([]Token, error) {
	if len(texts) != len(confidences) || len(texts) != len(polygons) {
		return nil, fmt.Errorf("%w: %d texts, %d confidences, %d polygons",
			ErrMalformedInput, len(texts), len(confidences), len(polygons))
	}

	out := make([]Token, 0, len(texts))
	for i, text := range texts {
		anchor, ok := polygons[i].Anchor()
		if !ok {
			return nil, fmt.Errorf("%w: token %d has an empty polygon", ErrMalformedInput, i)
		}
		if anchor.X < 0 || anchor.Y < 0 {
			return nil, fmt.Errorf("%w: token %d anchored at negative position (%g, %g)",
				ErrMalformedInput, i, anchor.X, anchor.Y)
		}
		out = append(out, Token{
			Text:       strings.TrimSpace(text),
			Confidence: confidences[i],
			X:          anchor.X,
			Y:          anchor.Y,
		})
	}
	return out, nil
}

// FilterConfidence returns the tokens whose confidence is at least minConf.
// A non-positive floor returns the input unchanged.
func FilterConfidence(toks []Token, minConf float64) []Token {
	if minConf <= 0 {
		return toks
	}
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Confidence >= minConf {
			out = append(out, t)
		}
	}
	return out
}
