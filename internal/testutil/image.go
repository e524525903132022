package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextItem is a string drawn at a baseline position.
type TextItem struct {
	Text string
	X, Y int
}

// ReadoutImageConfig describes a synthetic readout screen.
type ReadoutImageConfig struct {
	Width, Height int
	Items         []TextItem
	Background    color.Color
	Foreground    color.Color
	// Scale enlarges the rendered bitmap so OCR engines can read the small
	// built-in face.
	Scale float64
}

// DefaultReadoutImageConfig lays out the same screen as ReadoutBundle at
// one third of its size.
func DefaultReadoutImageConfig() ReadoutImageConfig {
	return ReadoutImageConfig{
		Width:  240,
		Height: 200,
		Items: []TextItem{
			{Text: "Workout", X: 33, Y: 30},
			{Text: "320", X: 103, Y: 150},
			{Text: "9.8", X: 30, Y: 150},
			{Text: "Distance:", X: 33, Y: 170},
			{Text: "Calories", X: 100, Y: 170},
			{Text: "Time:", X: 190, Y: 170},
		},
		Background: color.White,
		Foreground: color.Black,
		Scale:      3,
	}
}

// RenderReadout draws the configured items with the built-in 7x13 face.
func RenderReadout(cfg ReadoutImageConfig) *image.NRGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{cfg.Foreground},
		Face: basicfont.Face7x13,
	}
	for _, it := range cfg.Items {
		drawer.Dot = fixed.P(it.X, it.Y)
		drawer.DrawString(it.Text)
	}

	if cfg.Scale > 1 {
		w := int(float64(cfg.Width) * cfg.Scale)
		return imaging.Resize(img, w, 0, imaging.NearestNeighbor)
	}
	return imaging.Clone(img)
}

// SaveReadoutImage renders cfg into dir/name and returns the path.
func SaveReadoutImage(t *testing.T, dir, name string, cfg ReadoutImageConfig) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(RenderReadout(cfg), path), "Failed to save image %s", path)
	return path
}
