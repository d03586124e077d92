// Package raster carries frames through the per-frame half of the pipeline:
// proportional fitting of a frame onto a grid-sized transparent canvas, and
// slicing that canvas into ordered fixed-size tiles.
//
// Everything here works on NRGBA buffers so alpha survives each stage; opaque
// sources simply carry a fully-opaque alpha channel. Fit is the only place in
// the whole pipeline that resamples pixels - Split is an exact partition.
package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"emojigrid/internal/grid"
)

// Frame is one time-sampled RGBA raster from a source, tagged with its
// ordinal position in the extracted sequence. A static image is a single
// Frame with Index 0.
type Frame struct {
	Image *image.NRGBA
	Index int
}

// Tile is one fixed-size square fragment of a fitted canvas.
type Tile struct {
	Image *image.NRGBA

	// Col and Row locate the tile in the grid; Index is the row-major
	// linear position (Row*Cols + Col) that orders the final artifacts.
	Col   int
	Row   int
	Index int

	// FrameIndex is the ordinal of the originating frame. Zero for stills.
	FrameIndex int
}

// Fit scales a frame down proportionally so it fits inside the grid canvas
// and composites it centered onto a fully transparent background. The frame
// is never upscaled: a source smaller than the canvas stays at native
// resolution. Downscaling uses Lanczos resampling, which preserves alpha.
//
// Fitting an already fitted canvas again with the same geometry is an
// identity: scale resolves to 1.0 and the centered composite lands on the
// same pixels.
func Fit(frame Frame, g grid.Geometry, tileSize int) *image.NRGBA {
	canvasWidth := g.Cols * tileSize
	canvasHeight := g.Rows * tileSize

	bounds := frame.Image.Bounds()
	scale := math.Min(
		float64(canvasWidth)/float64(bounds.Dx()),
		float64(canvasHeight)/float64(bounds.Dy()),
	)

	var content image.Image = frame.Image
	if scale < 1.0 {
		newWidth := int(float64(bounds.Dx()) * scale)
		newHeight := int(float64(bounds.Dy()) * scale)
		content = imaging.Resize(frame.Image, newWidth, newHeight, imaging.Lanczos)
	}

	canvas := imaging.New(canvasWidth, canvasHeight, color.NRGBA{})
	return imaging.OverlayCenter(canvas, content, 1.0)
}

// Split slices a fitted canvas into exactly g.Total() tiles in row-major
// order. Tile (col,row) is the pixel rectangle
// [col*tileSize, row*tileSize, +tileSize, +tileSize): no overlap, no gap -
// pasting the tiles back at their rectangles reconstructs the canvas
// pixel for pixel.
func Split(canvas *image.NRGBA, g grid.Geometry, tileSize int, frameIndex int) []Tile {
	tiles := make([]Tile, 0, g.Total())
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			rect := image.Rect(
				col*tileSize, row*tileSize,
				(col+1)*tileSize, (row+1)*tileSize,
			)
			tiles = append(tiles, Tile{
				Image:      imaging.Crop(canvas, rect),
				Col:        col,
				Row:        row,
				Index:      row*g.Cols + col,
				FrameIndex: frameIndex,
			})
		}
	}
	return tiles
}
