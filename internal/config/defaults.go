package config

// Default returns the built-in configuration. The crop and percentage
// constants match the layout the sheets are printed with.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: "~/.cache/riso-reel",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Ingest: Ingest{
			AutoRotate:      true,
			AutoCrop:        true,
			WhiteBalance:    false,
			CropThreshold:   240,
			CropRatio:       0.7,
			CropMargin:      10,
			MaxCropLoss:     0.5,
			WhitePercentile: 99,
			PDFDPI:          300,
			PDFTool:         "pdftoppm",
		},
		Scan: Scan{
			MarkerCorner: "bottom-right",
			OCRLabels:    false,
			Cache:        true,
		},
		Grid: Grid{
			MarginPercent:  0.045,
			SpacingPercent: 0.012,
			Refine:         true,
			NearWhite:      250,
			MinRegion:      50,
			FallbackRows:   6,
			FallbackCols:   5,
			RenderWidth:    2550,
			RenderHeight:   3300,
			PaperTolerance: 0.02,
		},
		Extract: Extract{},
		Export: Export{
			FPS:         24,
			Upscale:     1,
			Loop:        0,
			Prefix:      "frame",
			StartNumber: 1,
			FFmpeg:      "ffmpeg",
		},
	}
}
