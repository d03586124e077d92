package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emojigrid/internal/grid"
)

const tileSize = 100

// gradientFrame builds a frame with position-dependent colors and a
// transparent left quarter, so resampling and compositing mistakes show up
// in both color and alpha.
func gradientFrame(width, height int) Frame {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			alpha := uint8(255)
			if x < width/4 {
				alpha = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: uint8((x + y) % 256),
				A: alpha,
			})
		}
	}
	return Frame{Image: img, Index: 0}
}

func TestFit_CanvasDimensions(t *testing.T) {
	g := grid.Geometry{Cols: 5, Rows: 3}
	canvas := Fit(gradientFrame(1000, 600), g, tileSize)

	assert.Equal(t, 500, canvas.Bounds().Dx())
	assert.Equal(t, 300, canvas.Bounds().Dy())
}

func TestFit_DownscaleFillsCanvas(t *testing.T) {
	// 1000x600 into a 500x300 canvas scales by exactly 0.5 on both axes,
	// so the content covers the whole canvas and the opaque right side
	// stays opaque.
	g := grid.Geometry{Cols: 5, Rows: 3}
	canvas := Fit(gradientFrame(1000, 600), g, tileSize)

	_, _, _, a := canvas.At(499, 150).RGBA()
	assert.NotZero(t, a, "opaque source content must stay opaque")

	_, _, _, a = canvas.At(10, 150).RGBA()
	assert.Zero(t, a, "transparent source content must stay transparent")
}

func TestFit_NeverUpscales(t *testing.T) {
	// A 50x50 source in a 100x100 canvas stays at native resolution,
	// centered at offset (25,25), with transparent margins.
	small := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			small.SetNRGBA(x, y, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	g := grid.Geometry{Cols: 1, Rows: 1}
	canvas := Fit(Frame{Image: small}, g, tileSize)

	require.Equal(t, 100, canvas.Bounds().Dx())
	require.Equal(t, 100, canvas.Bounds().Dy())

	// Margins transparent, center carries the source pixel untouched.
	_, _, _, a := canvas.At(0, 0).RGBA()
	assert.Zero(t, a)
	_, _, _, a = canvas.At(99, 99).RGBA()
	assert.Zero(t, a)
	assert.Equal(t, color.NRGBA{R: 200, G: 50, B: 50, A: 255}, canvas.NRGBAAt(25, 25))
	assert.Equal(t, color.NRGBA{R: 200, G: 50, B: 50, A: 255}, canvas.NRGBAAt(74, 74))
}

func TestFit_Idempotent(t *testing.T) {
	g := grid.Geometry{Cols: 5, Rows: 3}
	once := Fit(gradientFrame(1400, 900), g, tileSize)
	twice := Fit(Frame{Image: once}, g, tileSize)

	assert.True(t, bytes.Equal(once.Pix, twice.Pix),
		"refitting an already fitted canvas must not change any pixel")
}

func TestFit_PreservesAspectRatio(t *testing.T) {
	// A very wide source into a square-ish canvas leaves transparent bands
	// top and bottom rather than stretching.
	g := grid.Geometry{Cols: 3, Rows: 3}
	canvas := Fit(gradientFrame(3000, 600), g, tileSize)

	// Scaled content is 300x60, centered vertically at rows 120..179.
	_, _, _, a := canvas.At(250, 10).RGBA()
	assert.Zero(t, a, "band above the content must be transparent")
	_, _, _, a = canvas.At(250, 290).RGBA()
	assert.Zero(t, a, "band below the content must be transparent")
	_, _, _, a = canvas.At(250, 150).RGBA()
	assert.NotZero(t, a, "content row must carry pixels")
}

func TestSplit_PartitionLaw(t *testing.T) {
	g := grid.Geometry{Cols: 5, Rows: 3}
	canvas := Fit(gradientFrame(1000, 600), g, tileSize)
	tiles := Split(canvas, g, tileSize, 0)

	require.Len(t, tiles, g.Total())
	for i, tile := range tiles {
		assert.Equal(t, i, tile.Index)
		assert.Equal(t, i%g.Cols, tile.Col)
		assert.Equal(t, i/g.Cols, tile.Row)
		assert.Equal(t, tileSize, tile.Image.Bounds().Dx())
		assert.Equal(t, tileSize, tile.Image.Bounds().Dy())
	}
}

// Reassembling the tiles at their grid rectangles must reproduce the canvas
// pixel for pixel: Split never resamples.
func TestSplit_RoundTrip(t *testing.T) {
	g := grid.Geometry{Cols: 4, Rows: 2}
	canvas := Fit(gradientFrame(800, 400), g, tileSize)
	tiles := Split(canvas, g, tileSize, 0)

	rebuilt := image.NewNRGBA(canvas.Bounds())
	for _, tile := range tiles {
		rect := image.Rect(
			tile.Col*tileSize, tile.Row*tileSize,
			(tile.Col+1)*tileSize, (tile.Row+1)*tileSize,
		)
		draw.Draw(rebuilt, rect, tile.Image, image.Point{}, draw.Src)
	}

	assert.True(t, bytes.Equal(canvas.Pix, rebuilt.Pix),
		"tiles must partition the canvas exactly")
}

func TestSplit_FrameIndexTag(t *testing.T) {
	g := grid.Geometry{Cols: 2, Rows: 2}
	canvas := imaging.New(200, 200, color.NRGBA{A: 255})
	tiles := Split(canvas, g, tileSize, 7)

	for _, tile := range tiles {
		assert.Equal(t, 7, tile.FrameIndex)
	}
}
