// Package config holds all emojigrid configuration: grid sizing constraints,
// frame extraction bounds, encoder parameters and pipeline scheduling. A
// config is loaded from YAML, then environment variables are applied on top,
// so deployments can pin the ffmpeg binary or worker count without editing
// the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all emojigrid configuration.
type Config struct {
	// Grid sizing constraints
	Grid GridConfig `yaml:"grid"`

	// Frame extraction from animated sources
	Frames FramesConfig `yaml:"frames"`

	// Per-tile artifact encoding
	Encode EncodeConfig `yaml:"encode"`

	// Pipeline scheduling and scratch space
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// GridConfig bounds grid planning.
type GridConfig struct {
	// TileSize is the square tile edge in pixels (platform requirement).
	TileSize int `yaml:"tile_size"`

	// MinFragmentSize is the smallest acceptable per-part source size
	// before scaling, on either axis.
	MinFragmentSize int `yaml:"min_fragment_size"`

	// MaxTotalTiles caps cols*rows for any grid.
	MaxTotalTiles int `yaml:"max_total_tiles"`
}

// FramesConfig bounds frame extraction.
type FramesConfig struct {
	// MaxFrames truncates the extracted sequence (~2s at 30 fps).
	MaxFrames int `yaml:"max_frames"`

	// FPS is the sampling rate handed to the decoder.
	FPS int `yaml:"fps"`
}

// EncodeConfig parameterizes clip encoding.
type EncodeConfig struct {
	// FPS is the clip frame rate; it matches the extraction rate so
	// playback speed is preserved.
	FPS int `yaml:"fps"`

	// CRF is the constant-quality level for the VP9 encode.
	CRF int `yaml:"crf"`
}

// PipelineConfig controls scheduling and scratch space.
type PipelineConfig struct {
	// Workers caps the parallel fit/split and encode tasks.
	Workers int `yaml:"workers"`

	// FFmpegPath overrides PATH lookup of the ffmpeg binary.
	FFmpegPath string `yaml:"ffmpeg_path,omitempty"`

	// ScratchRoot is where per-invocation scratch directories are created.
	// Empty means the system temp directory.
	ScratchRoot string `yaml:"scratch_root,omitempty"`
}

// DefaultConfig returns the platform defaults: 100px tiles, at most 48 of
// them, 60 frames at 30 fps, CRF 40 VP9 clips, 8 workers.
func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			TileSize:        100,
			MinFragmentSize: 100,
			MaxTotalTiles:   48,
		},
		Frames: FramesConfig{
			MaxFrames: 60,
			FPS:       30,
		},
		Encode: EncodeConfig{
			FPS: 30,
			CRF: 40,
		},
		Pipeline: PipelineConfig{
			Workers: 8,
		},
	}
}

// Load reads a YAML config from path, applies environment overrides on top
// of it and validates the result. Fields absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects configs the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Grid.TileSize < 1 {
		return fmt.Errorf("grid.tile_size must be positive, got %d", c.Grid.TileSize)
	}
	if c.Grid.MinFragmentSize < 1 {
		return fmt.Errorf("grid.min_fragment_size must be positive, got %d", c.Grid.MinFragmentSize)
	}
	if c.Grid.MaxTotalTiles < 1 {
		return fmt.Errorf("grid.max_total_tiles must be positive, got %d", c.Grid.MaxTotalTiles)
	}
	if c.Frames.MaxFrames < 1 {
		return fmt.Errorf("frames.max_frames must be positive, got %d", c.Frames.MaxFrames)
	}
	if c.Frames.FPS < 1 {
		return fmt.Errorf("frames.fps must be positive, got %d", c.Frames.FPS)
	}
	if c.Encode.FPS < 1 {
		return fmt.Errorf("encode.fps must be positive, got %d", c.Encode.FPS)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	return nil
}
