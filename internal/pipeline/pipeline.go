// Package pipeline orchestrates one fragmentation run: decode a source into
// frames, fit and slice every frame, regroup the tiles by tile index and
// encode each group into its final artifact. A run is stateless given its
// inputs; concurrent runs for different sources are independent.
//
// Scheduling: per-frame fit/split and per-tile encodes run on a bounded
// errgroup worker pool with results collected by index, so the ordering
// contract (artifacts sorted by linear tile index) never depends on
// completion order. Decoding is a single external invocation and stays
// sequential. Tile grouping completes fully before any clip encode starts,
// because a clip needs the complete ordered frame set for its tile.
//
// Every run owns a scratch directory for intermediate frame and tile files;
// it is removed on every exit path, success or failure, before the result
// or error surfaces.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"emojigrid/internal/config"
	"emojigrid/internal/encode"
	"emojigrid/internal/fragment"
	"emojigrid/internal/grid"
	"emojigrid/internal/raster"
)

// Decoder is the decode capability the pipeline consumes.
type Decoder interface {
	// ExtractFrames returns a bounded, time-ordered frame sequence for an
	// animated source, using scratchDir for intermediates.
	ExtractFrames(ctx context.Context, path, scratchDir string) ([]raster.Frame, error)

	// DecodeStill decodes a single still image as frame 0.
	DecodeStill(path string) (raster.Frame, error)
}

// Encoder is the encode capability the pipeline consumes.
type Encoder interface {
	// Still encodes one tile as a lossless alpha-preserving image.
	Still(tile raster.Tile) (encode.Artifact, error)

	// Clip encodes one tile's ordered frame set as a short clip, staging
	// intermediates under scratchDir.
	Clip(ctx context.Context, tileIndex int, tiles []raster.Tile, scratchDir string) (encode.Artifact, error)
}

// Pipeline runs fragmentation end to end.
type Pipeline struct {
	cfg    *config.Config
	dec    Decoder
	enc    Encoder
	logger *zap.Logger

	// Progress, when set, is called after each finished tile encode with
	// the running count and the total. Calls come from worker goroutines;
	// the callback must be safe for concurrent use.
	Progress func(done, total int)
}

// New assembles a pipeline from its collaborators.
func New(cfg *config.Config, dec Decoder, enc Encoder, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, dec: dec, enc: enc, logger: logger}
}

// PlanGrid chooses a grid geometry for the given source dimensions under
// the configured constraints.
func (p *Pipeline) PlanGrid(width, height int) (grid.Geometry, error) {
	return grid.Plan(width, height, p.gridOptions())
}

// Run fragments one source into an ordered artifact list. If geom is nil
// the grid is planned from the source's native dimensions; a supplied
// geometry is validated against the tile-count bounds. The returned
// artifacts are ordered by linear tile index 0..Total-1, a contract the
// pack assembler relies on. On any failure Run returns no artifacts.
func (p *Pipeline) Run(ctx context.Context, sourcePath string, kind fragment.SourceKind, geom *grid.Geometry) ([]encode.Artifact, error) {
	runID := uuid.NewString()
	start := time.Now()

	scratch, err := p.makeScratch(runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			p.logger.Warn("failed to remove scratch directory",
				zap.String("run", runID), zap.Error(rmErr))
		}
	}()

	frames, err := p.decode(ctx, sourcePath, kind, scratch)
	if err != nil {
		return nil, err
	}

	g, err := p.resolveGrid(frames[0], geom)
	if err != nil {
		return nil, err
	}

	p.logger.Info("fragmentation started",
		zap.String("run", runID),
		zap.String("source", filepath.Base(sourcePath)),
		zap.Stringer("kind", kind),
		zap.Stringer("grid", g),
		zap.Int("frames", len(frames)))

	groups, err := p.fitAndSplit(ctx, frames, g)
	if err != nil {
		return nil, err
	}

	artifacts, err := p.encodeAll(ctx, kind, groups, scratch)
	if err != nil {
		return nil, err
	}

	p.logger.Info("fragmentation finished",
		zap.String("run", runID),
		zap.Int("artifacts", len(artifacts)),
		zap.Duration("elapsed", time.Since(start)))
	return artifacts, nil
}

func (p *Pipeline) gridOptions() grid.Options {
	return grid.Options{
		TileSize:    p.cfg.Grid.TileSize,
		MinFragment: p.cfg.Grid.MinFragmentSize,
		MaxTotal:    p.cfg.Grid.MaxTotalTiles,
	}
}

// makeScratch creates the invocation-owned scratch directory.
func (p *Pipeline) makeScratch(runID string) (string, error) {
	root := p.cfg.Pipeline.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}
	scratch := filepath.Join(root, "emojigrid-"+runID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return scratch, nil
}

// decode produces the frame sequence for either source kind. The kind is
// decided once by the caller at ingestion; no stage re-derives it.
func (p *Pipeline) decode(ctx context.Context, sourcePath string, kind fragment.SourceKind, scratch string) ([]raster.Frame, error) {
	if kind == fragment.SourceAnimated {
		return p.dec.ExtractFrames(ctx, sourcePath, scratch)
	}
	frame, err := p.dec.DecodeStill(sourcePath)
	if err != nil {
		return nil, err
	}
	return []raster.Frame{frame}, nil
}

// resolveGrid plans a geometry from the first frame's native dimensions, or
// validates the caller-supplied one.
func (p *Pipeline) resolveGrid(first raster.Frame, geom *grid.Geometry) (grid.Geometry, error) {
	if geom == nil {
		bounds := first.Image.Bounds()
		return grid.Plan(bounds.Dx(), bounds.Dy(), p.gridOptions())
	}
	if err := grid.Validate(*geom, p.gridOptions()); err != nil {
		return grid.Geometry{}, err
	}
	return *geom, nil
}

// fitAndSplit fits every frame onto the grid canvas and slices it, in
// parallel across frames, then regroups the tiles by tile index with frame
// order preserved inside each group. The returned slice is indexed by
// linear tile index and is complete before any encode starts.
func (p *Pipeline) fitAndSplit(ctx context.Context, frames []raster.Frame, g grid.Geometry) ([][]raster.Tile, error) {
	tileSize := p.cfg.Grid.TileSize

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.cfg.Pipeline.Workers)

	tilesByFrame := make([][]raster.Tile, len(frames))
	for i, frame := range frames {
		if egCtx.Err() != nil {
			break
		}
		i, frame := i, frame
		eg.Go(func() error {
			canvas := raster.Fit(frame, g, tileSize)
			tilesByFrame[i] = raster.Split(canvas, g, tileSize, frame.Index)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := make([][]raster.Tile, g.Total())
	for _, frameTiles := range tilesByFrame {
		for _, tile := range frameTiles {
			groups[tile.Index] = append(groups[tile.Index], tile)
		}
	}
	return groups, nil
}

// encodeAll encodes every tile group on the worker pool, collecting results
// by index. On the first failure no new encodes are dispatched, in-flight
// ones are awaited and the error surfaces with no partial artifact list.
func (p *Pipeline) encodeAll(ctx context.Context, kind fragment.SourceKind, groups [][]raster.Tile, scratch string) ([]encode.Artifact, error) {
	total := len(groups)
	artifacts := make([]encode.Artifact, total)
	var done atomic.Int64

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.cfg.Pipeline.Workers)

	for index := 0; index < total; index++ {
		if egCtx.Err() != nil {
			break
		}
		index := index
		eg.Go(func() error {
			var artifact encode.Artifact
			var err error
			if kind == fragment.SourceAnimated {
				artifact, err = p.enc.Clip(egCtx, index, groups[index], scratch)
			} else {
				artifact, err = p.enc.Still(groups[index][0])
			}
			if err != nil {
				return err
			}
			artifacts[index] = artifact
			if p.Progress != nil {
				p.Progress(int(done.Add(1)), total)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return artifacts, nil
}
