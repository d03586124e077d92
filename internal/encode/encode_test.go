package encode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"emojigrid/internal/config"
	"emojigrid/internal/fragment"
	"emojigrid/internal/raster"
)

func testTile(index int) raster.Tile {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			alpha := uint8(255)
			if y < 50 {
				alpha = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(index), G: uint8(x), B: uint8(y), A: alpha})
		}
	}
	return raster.Tile{Image: img, Index: index}
}

func TestStill(t *testing.T) {
	f := NewFFmpeg(config.DefaultConfig(), zap.NewNop())

	artifact, err := f.Still(testTile(5))
	require.NoError(t, err)
	assert.Equal(t, 5, artifact.Index)
	assert.Equal(t, fragment.SourceStatic, artifact.Kind)

	// The payload must be a decodable PNG with the alpha channel intact.
	decoded, err := png.Decode(bytes.NewReader(artifact.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 100, decoded.Bounds().Dy())

	_, _, _, a := decoded.At(10, 10).RGBA()
	assert.Zero(t, a, "transparent half must survive the encode")
	_, _, _, a = decoded.At(10, 90).RGBA()
	assert.NotZero(t, a, "opaque half must survive the encode")
}

func TestClip_EmptyGroup(t *testing.T) {
	f := NewFFmpeg(config.DefaultConfig(), zap.NewNop())

	_, err := f.Clip(context.Background(), 0, nil, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fragment.ErrEncode))
}

func TestClip_MissingBinary(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline.FFmpegPath = filepath.Join(t.TempDir(), "no-such-ffmpeg")

	f := NewFFmpeg(cfg, zap.NewNop())
	require.False(t, f.Available())

	_, err := f.Clip(context.Background(), 0, []raster.Tile{testTile(0)}, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fragment.ErrEncode))
}

func TestClipArgs(t *testing.T) {
	args := clipArgs("/scratch/part_003", "/scratch/003.webm", 30, 40)
	assert.Equal(t, []string{
		"-y",
		"-framerate", "30",
		"-i", filepath.Join("/scratch/part_003", "%04d.png"),
		"-c:v", "libvpx-vp9",
		"-pix_fmt", "yuva420p",
		"-b:v", "0",
		"-crf", "40",
		"-an",
		"/scratch/003.webm",
	}, args)
}

func TestClipArgs_ConfigDriven(t *testing.T) {
	for _, tc := range []struct{ fps, crf int }{{24, 30}, {30, 40}, {60, 10}} {
		args := clipArgs("d", "o", tc.fps, tc.crf)
		assert.Contains(t, args, strconv.Itoa(tc.fps))
		assert.Contains(t, args, strconv.Itoa(tc.crf))
	}
}
