package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	// glyphWidth approximates a rendered character for synthetic boxes.
	glyphWidth = 10
	// lineHeight is the height of synthetic boxes.
	lineHeight = 16
)

// BundleBuilder assembles synthetic recognizer output.
type BundleBuilder struct {
	b tokens.Bundle
}

// NewBundle starts an empty bundle for source.
func NewBundle(source string) *BundleBuilder {
	return &BundleBuilder{b: tokens.Bundle{Source: source}}
}

// Add appends text anchored at (x, y) with a high confidence.
func (bb *BundleBuilder) Add(text string, x, y float64) *BundleBuilder {
	return bb.AddScored(text, 0.99, x, y)
}

// AddScored appends text with an explicit confidence. The box is a clockwise
// rectangle whose first vertex is (x, y).
func (bb *BundleBuilder) AddScored(text string, conf, x, y float64) *BundleBuilder {
	w := float64(glyphWidth * max(len([]rune(text)), 1))
	bb.b.Append(text, conf, tokens.Polygon{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + lineHeight},
		{X: x, Y: y + lineHeight},
	})
	return bb
}

// Build returns a copy of the accumulated bundle.
func (bb *BundleBuilder) Build() *tokens.Bundle {
	out := bb.b
	return &out
}

// ReadoutBundle is a treadmill summary screen: a split "9 • 8" distance
// above "Distance:", a calorie count above "Calories" and a "Time:" label
// with nothing above it.
func ReadoutBundle() *tokens.Bundle {
	return NewBundle("treadmill.png").
		Add("Workout", 100, 50).
		Add("320", 310, 440).
		Add("9", 90, 450).
		Add("•", 110, 450).
		Add("8", 130, 450).
		Add("Distance:", 100, 500).
		Add("Calories", 300, 500).
		Add("Time:", 600, 500).
		Build()
}

// ReadoutRecord is the record ReadoutBundle yields with default settings.
func ReadoutRecord() map[string]any {
	return map[string]any{"Distance": 9.8, "Calories": int64(320)}
}

// WriteBundle stores b under dir as name, encoded by name's extension.
func WriteBundle(t *testing.T, dir, name string, b *tokens.Bundle) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)

	format, err := tokens.FormatFromPath(path)
	require.NoError(t, err)

	var data []byte
	if format == tokens.FormatYAML {
		data, err = yaml.Marshal(b)
	} else {
		data, err = json.MarshalIndent(b, "", "  ")
	}
	require.NoError(t, err, "Failed to encode bundle")
	require.NoError(t, os.WriteFile(path, data, 0o600), "Failed to write bundle %s", path)

	return path
}

// WriteFile writes raw content under dir, for malformed fixtures.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
