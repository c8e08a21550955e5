package config

import (
	"errors"
	"fmt"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Corners lists the accepted marker_corner values.
var Corners = []string{"bottom-right", "bottom-left", "top-right", "top-left"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateLogging,
		c.validateIngest,
		c.validateScan,
		c.validateGrid,
		c.validateExport,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateIngest() error {
	in := c.Ingest
	if in.CropThreshold <= 0 || in.CropThreshold > 255 {
		return fmt.Errorf("ingest.crop_threshold must be in (0,255]")
	}
	if in.CropRatio <= 0 || in.CropRatio > 1 {
		return fmt.Errorf("ingest.crop_ratio must be in (0,1]")
	}
	if in.MaxCropLoss <= 0 || in.MaxCropLoss > 1 {
		return fmt.Errorf("ingest.max_crop_loss must be in (0,1]")
	}
	if in.CropMargin < 0 {
		return fmt.Errorf("ingest.crop_margin must be non-negative")
	}
	if in.WhitePercentile <= 50 || in.WhitePercentile > 100 {
		return fmt.Errorf("ingest.white_percentile must be in (50,100]")
	}
	if in.PDFDPI <= 0 {
		return fmt.Errorf("ingest.pdf_dpi must be positive")
	}
	return nil
}

func (c *Config) validateScan() error {
	for _, corner := range Corners {
		if c.Scan.MarkerCorner == corner {
			return nil
		}
	}
	return fmt.Errorf("scan.marker_corner %q must be one of %v", c.Scan.MarkerCorner, Corners)
}

func (c *Config) validateGrid() error {
	g := c.Grid
	if g.MarginPercent < 0 || g.MarginPercent >= 0.5 {
		return fmt.Errorf("grid.margin_percent must be in [0,0.5)")
	}
	if g.SpacingPercent < 0 || g.SpacingPercent >= 0.5 {
		return fmt.Errorf("grid.spacing_percent must be in [0,0.5)")
	}
	if g.NearWhite <= 0 || g.NearWhite > 255 {
		return fmt.Errorf("grid.near_white must be in (0,255]")
	}
	if g.FallbackRows < 1 || g.FallbackCols < 1 {
		return fmt.Errorf("grid.fallback_rows and grid.fallback_cols must be at least 1")
	}
	if g.RenderWidth < 0 || g.RenderHeight < 0 {
		return fmt.Errorf("grid.render_width and grid.render_height must be non-negative")
	}
	if g.PaperTolerance < 0 || g.PaperTolerance >= 1 {
		return fmt.Errorf("grid.paper_tolerance must be in [0,1)")
	}
	return nil
}

func (c *Config) validateExport() error {
	e := c.Export
	if e.FPS <= 0 {
		return fmt.Errorf("export.fps must be positive")
	}
	if e.FrameDuration < 0 {
		return fmt.Errorf("export.frame_duration must be non-negative")
	}
	if e.Upscale < 1 || e.Upscale > 4 {
		return fmt.Errorf("export.upscale must be between 1 and 4")
	}
	if e.Loop < 0 {
		return fmt.Errorf("export.loop must be non-negative")
	}
	if e.StartNumber < 0 {
		return fmt.Errorf("export.start_number must be non-negative")
	}
	return nil
}
