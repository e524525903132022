package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle formats understood by DecodeBundle.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat is returned for bundle files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported bundle format")

// Bundle is the recognizer's raw output for one image. The field names follow
// PaddleOCR's predict() result so its dumps can be fed in unchanged.
type Bundle struct {
	Source string        `json:"source,omitempty" yaml:"source,omitempty"`
	Texts  []string      `json:"rec_texts" yaml:"rec_texts"`
	Scores []float64     `json:"rec_scores" yaml:"rec_scores"`
	Polys  [][][]float64 `json:"rec_polys" yaml:"rec_polys"`
}

// Polygons converts the raw [x, y] vertex lists into Polygon values.
func (b *Bundle) Polygons() ([]Polygon, error) {
	out := make([]Polygon, len(b.Polys))
	for i, raw := range b.Polys {
		poly := make(Polygon, 0, len(raw))
		for j, v := range raw {
			if len(v) < 2 {
				return nil, fmt.Errorf("%w: polygon %d vertex %d has %d coordinates", ErrMalformedInput, i, j, len(v))
			}
			poly = append(poly, Point{X: v[0], Y: v[1]})
		}
		out[i] = poly
	}
	return out, nil
}

// Tokens ingests the bundle.
func (b *Bundle) Tokens() ([]Token, error) {
	polys, err := b.Polygons()
	if err != nil {
		return nil, err
	}
	return Ingest(b.Texts, b.Scores, polys)
}

// Append adds one fragment to the bundle, keeping the three sequences aligned.
func (b *Bundle) Append(text string, score float64, poly Polygon) {
	raw := make([][]float64, len(poly))
	for i, p := range poly {
		raw[i] = []float64{p.X, p.Y}
	}
	b.Texts = append(b.Texts, text)
	b.Scores = append(b.Scores, score)
	b.Polys = append(b.Polys, raw)
}

// FormatFromPath maps a file extension to a bundle format.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// DecodeBundle reads a bundle in the given format.
func DecodeBundle(r io.Reader, format string) (*Bundle, error) {
	var b Bundle
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&b); err != nil {
			return nil, fmt.Errorf("decode json bundle: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&b); err != nil {
			return nil, fmt.Errorf("decode yaml bundle: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &b, nil
}

// LoadBundle reads a bundle file, choosing the decoder by extension.
// The bundle's Source defaults to the file path.
func LoadBundle(path string) (*Bundle, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // G304: path comes from CLI arguments
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = f.Close() }()

	b, err := DecodeBundle(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if b.Source == "" {
		b.Source = path
	}
	return b, nil
}
