// Command emojigrid slices a still image or short animation into a grid of
// fixed-size tiles and encodes each tile as an independent artifact, ready
// for upload as a custom emoji pack.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"emojigrid/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	ffmpegPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "emojigrid",
	Short: "emojigrid - slice images and animations into emoji-sized tile packs",
	Long: `emojigrid turns an arbitrary image or short animation into a grid of
equally sized tiles. Still sources become lossless PNG tiles; animated
sources (GIF, animated WEBP, MP4, WEBM) become short alpha-preserving WEBM
clips, one per tile, encoded via ffmpeg.

The grid is planned automatically from the source dimensions (parts as
square as possible, at most 48 tiles) or supplied explicitly with
--cols/--rows.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig resolves the effective config: the --config file when given,
// defaults otherwise, with environment and flag overrides applied on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
		cfg.ApplyEnvOverrides()
	}
	if ffmpegPath != "" {
		cfg.Pipeline.FFmpegPath = ffmpegPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&ffmpegPath, "ffmpeg", "", "path to the ffmpeg binary (default: PATH lookup)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(fragmentCmd)
}

func main() {
	// Optional .env for deployment settings (EMOJIGRID_* variables).
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
