package grid

import (
	"riso-reel/pkg/geometry"
)

const (
	// searchPad widens the window around a predicted cell, per side, as a
	// fraction of the cell size.
	searchPad = 0.2
	// minAreaRatio and maxAreaRatio bound a candidate box's area relative to
	// the predicted cell.
	minAreaRatio = 0.5
	maxAreaRatio = 1.5
)

// Refine snaps each cell of g to the best matching content box and returns
// the new grid. Cells without a match keep their predicted bounds.
func Refine(g Grid, boxes []geometry.RectInt) Grid {
	cells := make([]Cell, len(g.Cells))
	snapped := 0
	for i, c := range g.Cells {
		if refined, ok := snapCell(c, boxes); ok {
			cells[i] = refined
			snapped++
			continue
		}
		cells[i] = c
	}
	out := g.withCells(cells)
	out.Refined = snapped
	return out
}

// snapCell finds the box centred in the padded search window whose area is
// within range of the cell's and which overlaps the cell the most.
func snapCell(c Cell, boxes []geometry.RectInt) (Cell, bool) {
	r := c.Rect
	padX := int(float64(r.Width) * searchPad)
	padY := int(float64(r.Height) * searchPad)
	window := geometry.RectInt{
		X:      max(0, r.X-padX),
		Y:      max(0, r.Y-padY),
		Width:  r.Width + 2*padX,
		Height: r.Height + 2*padY,
	}

	cellArea := float64(r.Width * r.Height)
	best, bestOverlap := geometry.RectInt{}, 0
	for _, b := range boxes {
		if !window.Contains(b.Center()) {
			continue
		}
		area := float64(b.Width * b.Height)
		if area <= minAreaRatio*cellArea || area >= maxAreaRatio*cellArea {
			continue
		}
		if overlap := r.OverlapArea(b); overlap > bestOverlap {
			best, bestOverlap = b, overlap
		}
	}
	if bestOverlap == 0 {
		return c, false
	}
	return Cell{Rect: best, Row: c.Row, Col: c.Col}, true
}
