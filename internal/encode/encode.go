// Package encode produces the final per-tile artifacts. Stills become
// lossless PNGs encoded in-process; animated tiles become short silent WEBM
// clips encoded by an external ffmpeg run per tile (VP9 with alpha,
// constant-quality, fixed frame rate).
//
// Encoding different tiles is independent and safe to parallelize; the
// frames within one tile are written to disk in temporal order before the
// single ffmpeg invocation for that tile, so the encoder always sees a
// complete ordered input stream.
package encode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"emojigrid/internal/config"
	"emojigrid/internal/fragment"
	"emojigrid/internal/raster"
)

// Artifact is the encoded output for one tile. Data is the full artifact
// payload; nothing on disk outlives the pipeline invocation, so the bytes
// are the only durable result.
type Artifact struct {
	// Index is the row-major linear tile index the pack assembler keys on.
	Index int

	// Kind tells a consumer whether Data is a PNG still or a WEBM clip.
	Kind fragment.SourceKind

	// Data is the encoded artifact.
	Data []byte
}

// FFmpeg encodes tile artifacts, shelling out to ffmpeg for clips.
type FFmpeg struct {
	ffmpegPath string
	available  bool
	fps        int
	crf        int
	logger     *zap.Logger
}

// NewFFmpeg creates an encoder, resolving the ffmpeg binary from the config
// override or PATH. Still encoding works without ffmpeg; clip encoding
// requires Available to be true.
func NewFFmpeg(cfg *config.Config, logger *zap.Logger) *FFmpeg {
	f := &FFmpeg{
		fps:    cfg.Encode.FPS,
		crf:    cfg.Encode.CRF,
		logger: logger,
	}

	path := cfg.Pipeline.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return f
	}
	f.ffmpegPath = resolved
	f.available = true
	return f
}

// Available reports whether ffmpeg was found at construction.
func (f *FFmpeg) Available() bool { return f.available }

// Still encodes one tile as a lossless PNG with alpha.
func (f *FFmpeg) Still(tile raster.Tile) (Artifact, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, tile.Image, imaging.PNG); err != nil {
		return Artifact{}, fmt.Errorf("%w: tile %d: %v", fragment.ErrEncode, tile.Index, err)
	}
	return Artifact{Index: tile.Index, Kind: fragment.SourceStatic, Data: buf.Bytes()}, nil
}

// Clip encodes the ordered frame set of one tile index as a short WEBM
// clip. The tiles must all share tileIndex and arrive in frame order; they
// are staged as a PNG sequence under scratchDir and fed to a single ffmpeg
// run. A non-zero ffmpeg exit fails with fragment.ErrEncode.
func (f *FFmpeg) Clip(ctx context.Context, tileIndex int, tiles []raster.Tile, scratchDir string) (Artifact, error) {
	if len(tiles) == 0 {
		return Artifact{}, fmt.Errorf("%w: tile %d has no frames", fragment.ErrEncode, tileIndex)
	}
	if !f.available {
		return Artifact{}, fmt.Errorf("%w: ffmpeg binary not found", fragment.ErrEncode)
	}

	partDir := filepath.Join(scratchDir, fmt.Sprintf("part_%03d", tileIndex))
	if err := os.MkdirAll(partDir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create tile frame directory: %w", err)
	}

	for i, tile := range tiles {
		framePath := filepath.Join(partDir, fmt.Sprintf("%04d.png", i))
		if err := imaging.Save(tile.Image, framePath); err != nil {
			return Artifact{}, fmt.Errorf("%w: tile %d frame %d: %v", fragment.ErrEncode, tileIndex, i, err)
		}
	}

	outPath := filepath.Join(scratchDir, fmt.Sprintf("%03d.webm", tileIndex))

	start := time.Now()
	cmd := exec.CommandContext(ctx, f.ffmpegPath, clipArgs(partDir, outPath, f.fps, f.crf)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Artifact{}, fmt.Errorf("%w: ffmpeg clip encode for tile %d: %v (%s)",
			fragment.ErrEncode, tileIndex, err, condenseStderr(stderr.String()))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: tile %d: reading encoder output: %v", fragment.ErrEncode, tileIndex, err)
	}

	f.logger.Debug("encoded clip",
		zap.Int("tile", tileIndex),
		zap.Int("frames", len(tiles)),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return Artifact{Index: tileIndex, Kind: fragment.SourceAnimated, Data: data}, nil
}

// clipArgs builds the ffmpeg argument list for one tile clip: VP9 with an
// alpha-capable pixel format, constant quality, no audio track, frame rate
// matching extraction.
func clipArgs(partDir, outPath string, fps, crf int) []string {
	return []string{
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(partDir, "%04d.png"),
		"-c:v", "libvpx-vp9",
		"-pix_fmt", "yuva420p",
		"-b:v", "0",
		"-crf", strconv.Itoa(crf),
		"-an",
		outPath,
	}
}

func condenseStderr(s string) string {
	s = strings.TrimSpace(s)
	const keep = 400
	if len(s) > keep {
		s = "..." + s[len(s)-keep:]
	}
	return strings.ReplaceAll(s, "\n", " | ")
}
