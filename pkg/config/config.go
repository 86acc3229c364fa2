// Package config loads layerlens settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds process-wide settings.
type Config struct {
	// Listen is the HTTP address for serve mode.
	Listen string `toml:"listen"`
	// MaxUploadBytes caps the total size of one upload request.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
	// Workers bounds concurrent extractions in a batch.
	Workers int `toml:"workers"`
	// WatchDebounceMS is how long watch mode waits after the last write
	// before reading a file, in milliseconds.
	WatchDebounceMS int `toml:"watch_debounce_ms"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:          ":8374",
		MaxUploadBytes:  256 << 20,
		Workers:         4,
		WatchDebounceMS: 250,
	}
}

// Debounce returns the watch debounce as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

// Load reads a TOML file and overlays it on the defaults. An empty path or
// a missing file yields the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}
