package tokens

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y float64) Polygon {
	return Polygon{{X: x, Y: y}, {X: x + 10, Y: y}, {X: x + 10, Y: y + 10}, {X: x, Y: y + 10}}
}

func TestIngest(t *testing.T) {
	toks, err := Ingest(
		[]string{"  Distance: ", "9", "•"},
		[]float64{0.98, 0.91, 0.5},
		[]Polygon{square(100, 500), square(90, 400), square(110, 401)},
	)
	require.NoError(t, err)
	require.Len(t, toks, 3)

	assert.Equal(t, Token{Text: "Distance:", Confidence: 0.98, X: 100, Y: 500}, toks[0])
	assert.Equal(t, "9", toks[1].Text)
	assert.InDelta(t, 401.0, toks[2].Y, 1e-9)
}

func TestIngest_Empty(t *testing.T) {
	toks, err := Ingest(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, toks)
}

func TestIngest_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		texts  []string
		scores []float64
		polys  []Polygon
		msg    string
	}{
		{
			name:   "fewer polygons than texts",
			texts:  []string{"a", "b", "c"},
			scores: []float64{1, 1, 1},
			polys:  []Polygon{square(0, 0), square(1, 1)},
			msg:    "3 texts, 3 confidences, 2 polygons",
		},
		{
			name:   "fewer scores than texts",
			texts:  []string{"a"},
			scores: nil,
			polys:  []Polygon{square(0, 0)},
			msg:    "1 texts, 0 confidences",
		},
		{
			name:   "empty polygon",
			texts:  []string{"a"},
			scores: []float64{1},
			polys:  []Polygon{{}},
			msg:    "empty polygon",
		},
		{
			name:   "negative anchor",
			texts:  []string{"a"},
			scores: []float64{1},
			polys:  []Polygon{{{X: -1, Y: 4}}},
			msg:    "negative position",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Ingest(tt.texts, tt.scores, tt.polys)
			require.ErrorIs(t, err, ErrMalformedInput)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Nil(t, toks)
		})
	}
}

func TestFilterConfidence(t *testing.T) {
	toks := []Token{{Text: "a", Confidence: 0.2}, {Text: "b", Confidence: 0.8}, {Text: "c", Confidence: 0.5}}

	assert.Equal(t, toks, FilterConfidence(toks, 0))

	kept := FilterConfidence(toks, 0.5)
	require.Len(t, kept, 2)
	assert.Equal(t, "b", kept[0].Text)
	assert.Equal(t, "c", kept[1].Text)
}

func TestDecodeBundle_JSON(t *testing.T) {
	doc := `{
  "rec_texts": ["Calories", "3", "2"],
  "rec_scores": [0.99, 0.97, 0.96],
  "rec_polys": [[[10, 200], [80, 200], [80, 220], [10, 220]], [[20, 150], [30, 150]], [[40, 151], [50, 151]]]
}`
	b, err := DecodeBundle(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)

	toks, err := b.Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, Token{Text: "Calories", Confidence: 0.99, X: 10, Y: 200}, toks[0])
	assert.Equal(t, Token{Text: "2", Confidence: 0.96, X: 40, Y: 151}, toks[2])
}

func TestDecodeBundle_YAML(t *testing.T) {
	doc := `
source: trial-5.png
rec_texts: ["Distance:"]
rec_scores: [0.9]
rec_polys:
  - [[12.5, 300], [40, 300]]
`
	b, err := DecodeBundle(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "trial-5.png", b.Source)

	toks, err := b.Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.InDelta(t, 12.5, toks[0].X, 1e-9)
}

func TestDecodeBundle_Errors(t *testing.T) {
	_, err := DecodeBundle(strings.NewReader("{"), FormatJSON)
	require.Error(t, err)

	_, err = DecodeBundle(strings.NewReader("{}"), "toml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	b, err := DecodeBundle(strings.NewReader(`{"rec_texts":["x"],"rec_scores":[1],"rec_polys":[[[1]]]}`), FormatJSON)
	require.NoError(t, err)
	_, err = b.Tokens()
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestBundleAppend(t *testing.T) {
	var b Bundle
	b.Append("9", 0.9, square(5, 6))
	b.Append("Distance:", 0.8, square(1, 60))

	toks, err := b.Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, Token{Text: "9", Confidence: 0.9, X: 5, Y: 6}, toks[0])
}

func TestLoadBundle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rec_texts":["7"],"rec_scores":[1],"rec_polys":[[[3,4]]]}`), 0o600))

	b, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Source)
	assert.Equal(t, []string{"7"}, b.Texts)

	_, err = LoadBundle(filepath.Join(dir, "frame.txt"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadBundle(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]string{"a.json": FormatJSON, "b.YML": FormatYAML, "c.yaml": FormatYAML} {
		got, err := FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
}
