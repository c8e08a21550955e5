package grid

import (
	"math"

	"riso-reel/pkg/geometry"
)

// isotropicTolerance is the largest difference between horizontal and
// vertical scale that is still treated as scanner jitter.
const isotropicTolerance = 0.1

// Exact lays out the grid declared by exact-layout hints on a page of the
// given size. The caller checks h.HasExactLayout first.
func Exact(width, height int, h Hints, p Params) Grid {
	sx, sy := exactScale(width, height, h, p)

	margin, spacing := float64(*h.Margin), float64(*h.Spacing)
	marginX := int(margin * sx)
	marginY := int(margin * sy)
	cellW := int(float64(*h.CellWidth) * sx)
	cellH := int(float64(*h.CellHeight) * sy)
	spacingX := int(spacing * sx)
	spacingY := int(spacing * sy)

	origin := geometry.PointInt{X: marginX, Y: marginY}
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
		Strategy:   StrategyExact,
	}
}

// Footprint returns the page size implied by the layout: both margins, every
// cell and the gaps between them.
func Footprint(h Hints) geometry.Size {
	return geometry.Size{
		Width:  2*(*h.Margin) + h.Cols*(*h.CellWidth) + (h.Cols-1)*(*h.Spacing),
		Height: 2*(*h.Margin) + h.Rows*(*h.CellHeight) + (h.Rows-1)*(*h.Spacing),
	}
}

// exactScale returns the factors mapping layout pixels to scan pixels.
func exactScale(width, height int, h Hints, p Params) (float64, float64) {
	page := Footprint(h)
	if onRenderPage(width, height, page, p) {
		page = geometry.Size{Width: p.RenderWidth, Height: p.RenderHeight}
	}
	if page.Width <= 0 || page.Height <= 0 {
		return 1, 1
	}

	sx := float64(width) / float64(page.Width)
	sy := float64(height) / float64(page.Height)
	if math.Abs(sx-sy) < isotropicTolerance {
		s := (sx + sy) / 2
		sx, sy = s, s
	}
	return sx, sy
}

// onRenderPage reports whether a scan looks like a whole render page: the
// declared grid fits on the page and the aspect ratios agree.
func onRenderPage(width, height int, footprint geometry.Size, p Params) bool {
	if p.RenderWidth <= 0 || p.RenderHeight <= 0 || width <= 0 || height <= 0 {
		return false
	}
	if footprint.Width > p.RenderWidth || footprint.Height > p.RenderHeight {
		return false
	}
	pageAspect := float64(p.RenderWidth) / float64(p.RenderHeight)
	scanAspect := float64(width) / float64(height)
	return math.Abs(scanAspect-pageAspect)/pageAspect <= p.PaperTolerance
}
