// Package frames is the decode side of the fragmentation engine. It turns an
// animated source (GIF, animated WEBP, MP4, WEBM) into a bounded, time-ordered
// sequence of RGBA frames, and decodes still images into the same Frame
// representation so downstream stages are format-agnostic.
//
// Animated decoding shells out to ffmpeg exactly once per source: the decoder
// samples the input at the target frame rate and writes a PNG sequence into
// the invocation's scratch directory. A single invocation keeps frame order
// and indexing authoritative; the sequence is truncated to MaxFrames
// afterwards to bound processing cost.
package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"emojigrid/internal/config"
	"emojigrid/internal/fragment"
	"emojigrid/internal/raster"
)

// animatedContainers are the source containers the decoder recognizes.
var animatedContainers = map[string]bool{
	".gif":  true,
	".webp": true,
	".mp4":  true,
	".webm": true,
	".mov":  true,
}

// SupportedAnimated reports whether the path's extension is a recognized
// animated container.
func SupportedAnimated(path string) bool {
	return animatedContainers[strings.ToLower(filepath.Ext(path))]
}

// Extractor extracts frame sequences via an external ffmpeg binary.
type Extractor struct {
	ffmpegPath string
	available  bool
	maxFrames  int
	fps        int
	logger     *zap.Logger
}

// NewExtractor creates an extractor, resolving the ffmpeg binary from the
// config override or PATH. Availability is probed once at construction;
// use Available to fail fast before accepting work.
func NewExtractor(cfg *config.Config, logger *zap.Logger) *Extractor {
	e := &Extractor{
		maxFrames: cfg.Frames.MaxFrames,
		fps:       cfg.Frames.FPS,
		logger:    logger,
	}

	path := cfg.Pipeline.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return e
	}
	e.ffmpegPath = resolved
	e.available = true
	return e
}

// Available reports whether ffmpeg was found at construction.
func (e *Extractor) Available() bool { return e.available }

// ExtractFrames decodes an animated source into at most MaxFrames frames in
// original temporal order, sampled at the configured rate. The PNG
// intermediates live under scratchDir and belong to the calling pipeline
// invocation.
//
// Unrecognized containers fail with fragment.ErrUnsupportedFormat; a
// crashed decode or an empty frame sequence fails with fragment.ErrDecode.
func (e *Extractor) ExtractFrames(ctx context.Context, path, scratchDir string) ([]raster.Frame, error) {
	if !SupportedAnimated(path) {
		return nil, fmt.Errorf("%w: container %q", fragment.ErrUnsupportedFormat, filepath.Ext(path))
	}
	if !e.available {
		return nil, fmt.Errorf("%w: ffmpeg binary not found", fragment.ErrDecode)
	}

	framesDir := filepath.Join(scratchDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.ffmpegPath, extractArgs(path, framesDir, e.fps)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg frame extraction: %v (%s)",
			fragment.ErrDecode, err, condenseStderr(stderr.String()))
	}

	files, err := frameFiles(framesDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: source yielded zero frames", fragment.ErrDecode)
	}
	files = selectFrames(files, e.maxFrames)

	frames, err := loadFrames(files)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("extracted frames",
		zap.String("source", path),
		zap.Int("frames", len(frames)),
		zap.Int("fps", e.fps),
		zap.Duration("elapsed", time.Since(start)))
	return frames, nil
}

// DecodeStill decodes a single still image into a Frame with index 0.
func (e *Extractor) DecodeStill(path string) (raster.Frame, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, image.ErrFormat) || errors.Is(err, imaging.ErrUnsupportedFormat) {
			return raster.Frame{}, fmt.Errorf("%w: %s", fragment.ErrUnsupportedFormat, filepath.Base(path))
		}
		return raster.Frame{}, fmt.Errorf("%w: %v", fragment.ErrDecode, err)
	}
	return raster.Frame{Image: imaging.Clone(img), Index: 0}, nil
}

// extractArgs builds the ffmpeg argument list for a single-pass extraction:
// resample to the target fps, emit a zero-padded PNG sequence.
func extractArgs(src, framesDir string, fps int) []string {
	return []string{
		"-y",
		"-i", src,
		"-vf", fmt.Sprintf("fps=%d", fps),
		filepath.Join(framesDir, "%04d.png"),
	}
}

// selectFrames truncates the sequence to at most max frames, keeping the
// leading frames so temporal order and the clip-length bound both hold.
func selectFrames(files []string, max int) []string {
	if len(files) > max {
		return files[:max]
	}
	return files
}

// frameFiles lists the extracted PNG files in lexical order, which matches
// temporal order because the sequence pattern is zero-padded.
func frameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// loadFrames decodes the PNG sequence into NRGBA frames, assigning ordinals
// by position.
func loadFrames(paths []string) ([]raster.Frame, error) {
	frames := make([]raster.Frame, 0, len(paths))
	for i, path := range paths {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", fragment.ErrDecode, i, err)
		}
		frames = append(frames, raster.Frame{Image: imaging.Clone(img), Index: i})
	}
	return frames, nil
}

// condenseStderr keeps the tail of ffmpeg's stderr, which is where the
// actual failure reason lands.
func condenseStderr(s string) string {
	s = strings.TrimSpace(s)
	const keep = 400
	if len(s) > keep {
		s = "..." + s[len(s)-keep:]
	}
	return strings.ReplaceAll(s, "\n", " | ")
}
