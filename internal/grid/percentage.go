package grid

import (
	"math"

	"riso-reel/internal/cvutil"
	"riso-reel/pkg/geometry"
)

// materialShift is the fraction of a page dimension by which the ink bounds
// must move an edge before they replace the percentage guess.
const materialShift = 0.005

// Percentage divides a page into the hinted rows and columns using the
// default print margins. When ink bounds are supplied and differ materially
// from the guessed content box, they are used instead.
func Percentage(width, height int, h Hints, ink *geometry.RectInt, p Params) Grid {
	marginX := int(float64(width) * p.MarginPercent)
	marginY := int(float64(height) * p.MarginPercent)
	region := geometry.RectInt{X: marginX, Y: marginY, Width: width - 2*marginX, Height: height - 2*marginY}

	if ink != nil && usableInk(*ink, region, width, height, p) {
		region = *ink
	}

	spacingX := int(float64(width) * p.SpacingPercent)
	spacingY := int(float64(height) * p.SpacingPercent)
	cellW := max((region.Width-spacingX*(h.Cols-1))/h.Cols, 1)
	cellH := max((region.Height-spacingY*(h.Rows-1))/h.Rows, 1)

	origin := geometry.PointInt{X: region.X, Y: region.Y}
	return Grid{
		Cells:      uniform(h.Rows, h.Cols, origin, cellW, cellH, spacingX, spacingY),
		Rows:       h.Rows,
		Cols:       h.Cols,
		CellWidth:  cellW,
		CellHeight: cellH,
		Origin:     origin,
		SpacingX:   spacingX,
		SpacingY:   spacingY,
		FrameCount: capFrames(h.FrameCount, h.Rows, h.Cols),
		Strategy:   StrategyPercentage,
	}
}

// usableInk reports whether detected ink bounds are large enough to hold a
// grid and move at least one edge of the guess by a material amount.
func usableInk(ink, guess geometry.RectInt, width, height int, p Params) bool {
	if ink.Width < p.MinRegion || ink.Height < p.MinRegion {
		return false
	}
	dx := materialShift * float64(width)
	dy := materialShift * float64(height)
	return math.Abs(float64(ink.X-guess.X)) > dx ||
		math.Abs(float64(ink.Right()-guess.Right())) > dx ||
		math.Abs(float64(ink.Y-guess.Y)) > dy ||
		math.Abs(float64(ink.Bottom()-guess.Bottom())) > dy
}

// InkBounds returns the box spanned by rows and columns whose mean
// brightness is below the ink threshold. ok is false for a blank page.
func InkBounds(rowMeans, colMeans []float64, p Params) (geometry.RectInt, bool) {
	limit := p.NearWhite * p.InkRatio
	inked := func(v float64) bool { return v < limit }

	top, bottom, okRows := cvutil.Span(rowMeans, inked)
	left, right, okCols := cvutil.Span(colMeans, inked)
	if !okRows || !okCols {
		return geometry.RectInt{}, false
	}
	return geometry.RectInt{X: left, Y: top, Width: right - left + 1, Height: bottom - top + 1}, true
}
