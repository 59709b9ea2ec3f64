// Package config loads the CLI configuration: a YAML file, an optional .env file
// and STICKERKIT_* environment overrides, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stickerkit/internal/adjust"
	"stickerkit/internal/archive"
	"stickerkit/internal/filter"
	"stickerkit/internal/raster"
	"stickerkit/internal/render"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const envPrefix = "STICKERKIT_"

// Config represents the application configuration
type Config struct {
	MaxSize          int               `yaml:"max_size"`
	ThumbnailSize    int               `yaml:"thumbnail_size"`
	Resample         string            `yaml:"resample"`
	OutputDir        string            `yaml:"output_dir"`
	CompressionLevel int               `yaml:"compression_level"`
	Adjustments      AdjustmentsConfig `yaml:"adjustments"`
	Filter           FilterConfig      `yaml:"filter"`
	Log              LogConfig         `yaml:"log"`
	MetricsFile      string            `yaml:"metrics_file"`
}

type AdjustmentsConfig struct {
	Brightness float64 `yaml:"brightness"`
	Contrast   float64 `yaml:"contrast"`
	Saturation float64 `yaml:"saturation"`
	Sharpness  float64 `yaml:"sharpness"`
}

type FilterConfig struct {
	Name       string  `yaml:"name"`
	BlurRadius float64 `yaml:"blur_radius"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	JSON       bool   `yaml:"json"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxSize:          raster.DefaultMaxSize,
		ThumbnailSize:    raster.DefaultThumbnailSize,
		Resample:         "lanczos",
		OutputDir:        "stickers",
		CompressionLevel: archive.DefaultCompressionLevel,
		Adjustments: AdjustmentsConfig{
			Brightness: adjust.Neutral,
			Contrast:   adjust.Neutral,
			Saturation: adjust.Neutral,
			Sharpness:  adjust.Neutral,
		},
		Filter: FilterConfig{Name: "none", BlurRadius: filter.DefaultBlurRadius},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path
// is empty) and the environment. A .env file in the working directory is
// loaded first if present.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"MAX_SIZE":          &c.MaxSize,
		"THUMBNAIL_SIZE":    &c.ThumbnailSize,
		"COMPRESSION_LEVEL": &c.CompressionLevel,
	}
	for key, dst := range ints {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, envPrefix, key, v)
		}
		*dst = n
	}

	strs := map[string]*string{
		"OUTPUT_DIR": &c.OutputDir,
		"LOG_LEVEL":  &c.Log.Level,
		"LOG_FILE":   &c.Log.File,
		"RESAMPLE":   &c.Resample,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: max_size must be positive, got %d", ErrInvalid, c.MaxSize)
	}
	if c.ThumbnailSize <= 0 {
		return fmt.Errorf("%w: thumbnail_size must be positive, got %d", ErrInvalid, c.ThumbnailSize)
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 9 {
		return fmt.Errorf("%w: compression_level must be in [1,9], got %d", ErrInvalid, c.CompressionLevel)
	}
	if _, err := raster.FilterByName(c.Resample); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.adjustments().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := filter.Parse(c.Filter.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Filter.BlurRadius < 0 || c.Filter.BlurRadius > filter.MaxBlurRadius {
		return fmt.Errorf("%w: filter.blur_radius must be in [0,%g], got %g", ErrInvalid, filter.MaxBlurRadius, c.Filter.BlurRadius)
	}
	return nil
}

func (c *Config) adjustments() adjust.Values {
	return adjust.Values{
		Brightness: c.Adjustments.Brightness,
		Contrast:   c.Adjustments.Contrast,
		Saturation: c.Adjustments.Saturation,
		Sharpness:  c.Adjustments.Sharpness,
	}
}

// Pipeline returns the ingest pipeline the config describes.
func (c *Config) Pipeline() raster.Pipeline {
	f, err := raster.FilterByName(c.Resample)
	if err != nil {
		f = raster.DefaultFilter
	}
	return raster.Pipeline{MaxSize: c.MaxSize, Filter: f}
}

// Settings returns the initial render settings.
func (c *Config) Settings() render.Settings {
	kind, err := filter.Parse(c.Filter.Name)
	if err != nil {
		kind = filter.None
	}
	return render.Settings{
		Adjustments: c.adjustments(),
		Filter:      filter.Spec{Kind: kind}.WithBlurRadius(c.Filter.BlurRadius),
	}
}
