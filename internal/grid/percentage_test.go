package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riso-reel/pkg/geometry"
)

func TestPercentageDefaultMargins(t *testing.T) {
	g := Percentage(1000, 1000, Hints{Rows: 2, Cols: 2}, nil, DefaultParams())
	assert.Equal(t, geometry.PointInt{X: 45, Y: 45}, g.Origin)
	assert.Equal(t, 12, g.SpacingX)
	assert.Equal(t, 449, g.CellWidth)
	assert.Equal(t, 449, g.CellHeight)
	assert.Equal(t, StrategyPercentage, g.Strategy)

	last, ok := g.Cell(1, 1)
	require.True(t, ok)
	assert.Equal(t, 45+449+12, last.Rect.X)
}

func TestPercentageUsesMateriallyDifferentInk(t *testing.T) {
	ink := geometry.NewRectInt(100, 100, 800, 800)
	g := Percentage(1000, 1000, Hints{Rows: 2, Cols: 2}, &ink, DefaultParams())
	assert.Equal(t, geometry.PointInt{X: 100, Y: 100}, g.Origin)
	assert.Equal(t, 394, g.CellWidth)
}

func TestPercentageIgnoresInkNearGuess(t *testing.T) {
	ink := geometry.NewRectInt(47, 44, 908, 911)
	g := Percentage(1000, 1000, Hints{Rows: 2, Cols: 2}, &ink, DefaultParams())
	assert.Equal(t, geometry.PointInt{X: 45, Y: 45}, g.Origin)
}

func TestPercentageIgnoresDegenerateInk(t *testing.T) {
	ink := geometry.NewRectInt(400, 400, 30, 300)
	g := Percentage(1000, 1000, Hints{Rows: 2, Cols: 2}, &ink, DefaultParams())
	assert.Equal(t, geometry.PointInt{X: 45, Y: 45}, g.Origin)
}

func TestInkBounds(t *testing.T) {
	rows := []float64{255, 255, 200, 120, 255, 90, 250}
	cols := []float64{250, 170, 255, 100, 255}

	box, ok := InkBounds(rows, cols, DefaultParams())
	require.True(t, ok)
	// 0.7 x 250 = 175 is the ink limit.
	assert.Equal(t, geometry.NewRectInt(1, 3, 3, 3), box)

	_, ok = InkBounds([]float64{255, 240}, cols, DefaultParams())
	assert.False(t, ok)
}
