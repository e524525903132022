package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/readout/internal/ocr"
	"github.com/MeKo-Tech/readout/internal/testutil"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRecognizer makes every image recognize as the reference readout.
func stubRecognizer(t *testing.T) *ocr.Config {
	t.Helper()
	seen := &ocr.Config{}
	old := newRecognizer
	newRecognizer = func(cfg ocr.Config) (ocr.Recognizer, error) {
		*seen = cfg
		return ocr.RecognizerFunc(func(ctx context.Context, path string) (*tokens.Bundle, error) {
			b := testutil.ReadoutBundle()
			b.Source = ""
			return b, nil
		}), nil
	}
	t.Cleanup(func() { newRecognizer = old })
	return seen
}

func TestImage_ExtractsRecord(t *testing.T) {
	dir := isolate(t)
	seen := stubRecognizer(t)
	img := testutil.SaveReadoutImage(t, dir, "shot.png", testutil.DefaultReadoutImageConfig())
	bundles := filepath.Join(dir, "bundles")

	out, _, err := execute(t, "", "image", img, "--language", "deu", "--save-bundle", bundles)
	require.NoError(t, err)
	assert.Equal(t, "Distance: 9.8 (float)\nCalories: 320 (int)\nunmatched: Time:\n", out)
	assert.Equal(t, "deu", seen.Language)

	saved, err := tokens.LoadBundle(filepath.Join(bundles, "shot.json"))
	require.NoError(t, err)
	assert.Equal(t, img, saved.Source)
	assert.Len(t, saved.Texts, 8)
}

func TestImage_UnreadableImage(t *testing.T) {
	dir := isolate(t)
	stubRecognizer(t)
	path := testutil.WriteFile(t, dir, "fake.png", "not an image")

	_, _, err := execute(t, "", "image", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrUnreadableImage)
}
