package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riso-reel/internal/metadata"
)

func exactHints(rows, cols, cellW, cellH, margin, spacing int) Hints {
	return Hints{
		Rows:       rows,
		Cols:       cols,
		CellWidth:  metadata.Ptr(cellW),
		CellHeight: metadata.Ptr(cellH),
		Margin:     metadata.Ptr(margin),
		Spacing:    metadata.Ptr(spacing),
	}
}

func TestExactFullPageAtRenderScale(t *testing.T) {
	h := exactHints(5, 4, 400, 300, 150, 30)
	g := Exact(2550, 3300, h, DefaultParams())

	first, ok := g.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, 150, first.Rect.X)
	assert.Equal(t, 150, first.Rect.Y)

	second, ok := g.Cell(0, 1)
	require.True(t, ok)
	assert.Equal(t, 430, second.Rect.X-first.Rect.X)
	assert.Equal(t, 430, g.CellWidth+g.SpacingX)
	assert.Equal(t, StrategyExact, g.Strategy)
	assert.Len(t, g.Cells, 20)
}

func TestExactScaleInvariance(t *testing.T) {
	h := exactHints(5, 4, 400, 300, 150, 30)
	base := Exact(2550, 3300, h, DefaultParams())

	for _, k := range []float64{0.5, 0.75, 1.5, 2} {
		g := Exact(int(2550*k), int(3300*k), h, DefaultParams())
		assert.InEpsilon(t, float64(base.CellWidth)*k, float64(g.CellWidth), 0.02, "k=%v", k)
		assert.InEpsilon(t, float64(base.CellHeight)*k, float64(g.CellHeight), 0.02, "k=%v", k)
		assert.InEpsilon(t, float64(base.Origin.X)*k, float64(g.Origin.X), 0.02, "k=%v", k)
		assert.InEpsilon(t, float64(base.Origin.Y)*k, float64(g.Origin.Y), 0.02, "k=%v", k)
	}
}

func TestExactReconstructsFootprintOffPaper(t *testing.T) {
	h := exactHints(5, 4, 400, 300, 150, 30)
	assert.Equal(t, 1990, Footprint(h).Width)
	assert.Equal(t, 1920, Footprint(h).Height)

	p := DefaultParams()
	p.RenderWidth, p.RenderHeight = 0, 0

	g := Exact(3980, 3840, h, p)
	assert.Equal(t, 800, g.CellWidth)
	assert.Equal(t, 600, g.CellHeight)
	assert.Equal(t, 300, g.Origin.X)
	assert.Equal(t, 60, g.SpacingX)

	// Scales further apart than 10% are applied per axis.
	g = Exact(1990, 3840, h, p)
	assert.Equal(t, 400, g.CellWidth)
	assert.Equal(t, 600, g.CellHeight)
	assert.Equal(t, 150, g.Origin.X)
	assert.Equal(t, 300, g.Origin.Y)
}

func TestExactAveragesNearIsotropicScale(t *testing.T) {
	h := exactHints(5, 4, 400, 300, 150, 30)
	p := DefaultParams()
	p.RenderWidth = 0

	// sx = 1.0, sy = 1.0625: averaged to 1.03125 on both axes.
	g := Exact(1990, 2040, h, p)
	assert.Equal(t, 412, g.CellWidth)
	assert.Equal(t, 309, g.CellHeight)
}

func TestExactCapsFrameCount(t *testing.T) {
	h := exactHints(2, 2, 100, 100, 10, 10)
	h.FrameCount = metadata.Ptr(9)
	g := Exact(230, 230, h, DefaultParams())
	require.NotNil(t, g.FrameCount)
	assert.Equal(t, 4, *g.FrameCount)
	assert.Len(t, g.InOrder(), 4)
}
