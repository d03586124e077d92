package config

import (
	"os"
	"strconv"
)

// Environment variables recognized by ApplyEnvOverrides. They take
// precedence over the config file so operators can retune a deployment
// without shipping a new YAML.
const (
	EnvFFmpegPath  = "EMOJIGRID_FFMPEG"
	EnvWorkers     = "EMOJIGRID_WORKERS"
	EnvMaxFrames   = "EMOJIGRID_MAX_FRAMES"
	EnvScratchRoot = "EMOJIGRID_SCRATCH_ROOT"
)

// ApplyEnvOverrides overlays recognized environment variables onto the
// config. Unset or malformed values leave the config untouched.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvFFmpegPath); v != "" {
		c.Pipeline.FFmpegPath = v
	}
	if v := os.Getenv(EnvScratchRoot); v != "" {
		c.Pipeline.ScratchRoot = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.Workers = n
		}
	}
	if v := os.Getenv(EnvMaxFrames); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Frames.MaxFrames = n
		}
	}
}
