package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emojigrid/internal/encode"
	"emojigrid/internal/fragment"
	"emojigrid/internal/frames"
	"emojigrid/internal/grid"
	"emojigrid/internal/pipeline"
)

var (
	fragmentCols     int
	fragmentRows     int
	fragmentOut      string
	fragmentAnimated bool
	fragmentStill    bool
)

// fragmentCmd runs the full pipeline on one source file.
var fragmentCmd = &cobra.Command{
	Use:   "fragment [source]",
	Short: "Slice a source file into per-tile artifacts",
	Long: `Runs the fragmentation pipeline on a source file and writes one
artifact per tile into the output directory, named by linear tile index
(000.png, 001.png, ... or 000.webm, ...). Upload order follows that index.

The source kind is decided once from the file extension: GIF, animated
WEBP, MP4, WEBM and MOV run the animated path; everything else is treated
as a still. --animated and --still override the detection.

Examples:
  emojigrid fragment mascot.png
  emojigrid fragment party.gif --out party_tiles
  emojigrid fragment banner.jpg --cols 8 --rows 4`,
	Args: cobra.ExactArgs(1),
	RunE: runFragment,
}

func init() {
	fragmentCmd.Flags().IntVar(&fragmentCols, "cols", 0, "grid columns (omit to plan automatically)")
	fragmentCmd.Flags().IntVar(&fragmentRows, "rows", 0, "grid rows (omit to plan automatically)")
	fragmentCmd.Flags().StringVarP(&fragmentOut, "out", "o", "tiles", "output directory for the artifacts")
	fragmentCmd.Flags().BoolVar(&fragmentAnimated, "animated", false, "force the animated path")
	fragmentCmd.Flags().BoolVar(&fragmentStill, "still", false, "force the still path")
}

func runFragment(cmd *cobra.Command, args []string) error {
	sourcePath := args[0]
	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("source not readable: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kind := detectKind(sourcePath)
	if fragmentAnimated {
		kind = fragment.SourceAnimated
	}
	if fragmentStill {
		kind = fragment.SourceStatic
	}

	var geom *grid.Geometry
	if fragmentCols > 0 || fragmentRows > 0 {
		if fragmentCols < 1 || fragmentRows < 1 {
			return fmt.Errorf("--cols and --rows must be set together")
		}
		geom = &grid.Geometry{Cols: fragmentCols, Rows: fragmentRows}
	}

	extractor := frames.NewExtractor(cfg, logger)
	encoder := encode.NewFFmpeg(cfg, logger)
	if kind == fragment.SourceAnimated && !encoder.Available() {
		return fmt.Errorf("animated sources need ffmpeg on PATH (or --ffmpeg)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, extractor, encoder, logger)
	p.Progress = func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rencoding tiles %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	artifacts, err := p.Run(ctx, sourcePath, kind, geom)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fragmentOut, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, artifact := range artifacts {
		name := fmt.Sprintf("%03d%s", artifact.Index, artifact.Kind.ArtifactExt())
		outPath := filepath.Join(fragmentOut, name)
		if err := os.WriteFile(outPath, artifact.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
	}

	logger.Info("artifacts written",
		zap.Int("count", len(artifacts)),
		zap.String("dir", fragmentOut))
	fmt.Printf("Wrote %d artifacts to %s\n", len(artifacts), fragmentOut)
	return nil
}

// detectKind decides the source kind once, from the container extension.
func detectKind(path string) fragment.SourceKind {
	if frames.SupportedAnimated(path) {
		return fragment.SourceAnimated
	}
	return fragment.SourceStatic
}
