package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100, cfg.Grid.TileSize)
	assert.Equal(t, 100, cfg.Grid.MinFragmentSize)
	assert.Equal(t, 48, cfg.Grid.MaxTotalTiles)
	assert.Equal(t, 60, cfg.Frames.MaxFrames)
	assert.Equal(t, 30, cfg.Frames.FPS)
	assert.Equal(t, 40, cfg.Encode.CRF)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emojigrid.yaml")

	cfg := DefaultConfig()
	cfg.Frames.MaxFrames = 30
	cfg.Pipeline.Workers = 4
	cfg.Pipeline.FFmpegPath = "/opt/ffmpeg/bin/ffmpeg"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig_LoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frames:\n  max_frames: 12\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Frames.MaxFrames)
	assert.Equal(t, 100, cfg.Grid.TileSize, "unset fields keep their defaults")
}

func TestConfig_LoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvFFmpegPath, "/usr/local/bin/ffmpeg")
	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvMaxFrames, "24")
	t.Setenv(EnvScratchRoot, "/var/tmp/emojigrid")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.Pipeline.FFmpegPath)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, 24, cfg.Frames.MaxFrames)
	assert.Equal(t, "/var/tmp/emojigrid", cfg.Pipeline.ScratchRoot)
}

func TestConfig_EnvOverridesIgnoreMalformed(t *testing.T) {
	t.Setenv(EnvWorkers, "not-a-number")
	t.Setenv(EnvMaxFrames, "-5")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 60, cfg.Frames.MaxFrames)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tile size", func(c *Config) { c.Grid.TileSize = 0 }},
		{"zero min fragment", func(c *Config) { c.Grid.MinFragmentSize = 0 }},
		{"zero max total", func(c *Config) { c.Grid.MaxTotalTiles = 0 }},
		{"zero max frames", func(c *Config) { c.Frames.MaxFrames = 0 }},
		{"zero extraction fps", func(c *Config) { c.Frames.FPS = 0 }},
		{"zero encode fps", func(c *Config) { c.Encode.FPS = 0 }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
