// Package config loads riso-reel settings from TOML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Config holds every tunable used by the reconstruction pipeline.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
	Ingest  Ingest  `toml:"ingest"`
	Scan    Scan    `toml:"scan"`
	Grid    Grid    `toml:"grid"`
	Extract Extract `toml:"extract"`
	Export  Export  `toml:"export"`
}

// Paths controls where persistent state lives.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Ingest configures scan loading and cleanup.
type Ingest struct {
	AutoRotate      bool    `toml:"auto_rotate"`
	AutoCrop        bool    `toml:"auto_crop"`
	WhiteBalance    bool    `toml:"white_balance"`
	CropThreshold   float64 `toml:"crop_threshold"`
	CropRatio       float64 `toml:"crop_ratio"`
	CropMargin      int     `toml:"crop_margin"`
	MaxCropLoss     float64 `toml:"max_crop_loss"`
	WhitePercentile float64 `toml:"white_percentile"`
	PDFDPI          int     `toml:"pdf_dpi"`
	PDFTool         string  `toml:"pdf_tool"`
}

// Scan configures marker search.
type Scan struct {
	MarkerCorner string `toml:"marker_corner"`
	OCRLabels    bool   `toml:"ocr_labels"`
	Cache        bool   `toml:"cache"`
}

// Grid configures the grid resolver.
type Grid struct {
	MarginPercent  float64 `toml:"margin_percent"`
	SpacingPercent float64 `toml:"spacing_percent"`
	Refine         bool    `toml:"refine"`
	NearWhite      float64 `toml:"near_white"`
	MinRegion      int     `toml:"min_region"`
	FallbackRows   int     `toml:"fallback_rows"`
	FallbackCols   int     `toml:"fallback_cols"`
	RenderWidth    int     `toml:"render_width"`
	RenderHeight   int     `toml:"render_height"`
	PaperTolerance float64 `toml:"paper_tolerance"`
}

// Extract configures frame extraction.
type Extract struct {
	BorderCrop  int  `toml:"border_crop"`
	Sharpen     bool `toml:"sharpen"`
	Contrast    bool `toml:"contrast"`
	Perspective bool `toml:"perspective"`
}

// Export configures output rendering.
type Export struct {
	FPS           float64 `toml:"fps"`
	FrameDuration float64 `toml:"frame_duration"`
	Upscale       int     `toml:"upscale"`
	Loop          int     `toml:"loop"`
	Prefix        string  `toml:"prefix"`
	StartNumber   int     `toml:"start_number"`
	FFmpeg        string  `toml:"ffmpeg"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/riso-reel/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// yields defaults; exists reports whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		projectPath, err := filepath.Abs("riso-reel.toml")
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	cacheDir, err := expandPath(c.Paths.CacheDir)
	if err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	c.Paths.CacheDir = cacheDir

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Scan.MarkerCorner = strings.ToLower(strings.TrimSpace(c.Scan.MarkerCorner))
	c.Export.Prefix = strings.TrimSpace(c.Export.Prefix)
	if c.Export.Prefix == "" {
		c.Export.Prefix = "frame"
	}
	return nil
}

// EnsureDirectories creates the cache directory.
func (c *Config) EnsureDirectories() error {
	if c.Paths.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
