package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riso-reel/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, path, resolved)

	// Empirically tuned constants are pinned here.
	assert.Equal(t, 0.045, cfg.Grid.MarginPercent)
	assert.Equal(t, 0.012, cfg.Grid.SpacingPercent)
	assert.Equal(t, 240.0, cfg.Ingest.CropThreshold)
	assert.Equal(t, 0.7, cfg.Ingest.CropRatio)
	assert.Equal(t, 10, cfg.Ingest.CropMargin)
	assert.Equal(t, 0.5, cfg.Ingest.MaxCropLoss)
	assert.Equal(t, 6, cfg.Grid.FallbackRows)
	assert.Equal(t, 5, cfg.Grid.FallbackCols)
	assert.Equal(t, 2550, cfg.Grid.RenderWidth)
	assert.Equal(t, 3300, cfg.Grid.RenderHeight)
	assert.Equal(t, 24.0, cfg.Export.FPS)
	assert.False(t, cfg.Ingest.WhiteBalance)
	assert.True(t, filepath.IsAbs(cfg.Paths.CacheDir))
}

func TestLoadOverridesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[export]
fps = 12.0
upscale = 2

[scan]
marker_corner = "Top-Left"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 12.0, cfg.Export.FPS)
	assert.Equal(t, 2, cfg.Export.Upscale)
	assert.Equal(t, "top-left", cfg.Scan.MarkerCorner)
	assert.True(t, cfg.Ingest.AutoCrop, "unset keys keep defaults")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"upscale too large": "[export]\nupscale = 5\n",
		"zero fps":          "[export]\nfps = 0.0\n",
		"unknown corner":    "[scan]\nmarker_corner = \"middle\"\n",
		"bad log format":    "[logging]\nformat = \"xml\"\n",
		"crop ratio":        "[ingest]\ncrop_ratio = 1.5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, _, _, err := config.Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalid), "got %v", err)
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[grid]\nmystery = 1\n"), 0o644))

	_, _, _, err := config.Load(path)
	require.Error(t, err)
}

func TestSampleConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)

	def := config.Default()
	assert.Equal(t, def.Grid, cfg.Grid)
	assert.Equal(t, def.Export, cfg.Export)
	assert.Equal(t, def.Ingest, cfg.Ingest)
}
