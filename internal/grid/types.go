// Package grid resolves where frame thumbnails sit on a scanned contact sheet.
package grid

import (
	"fmt"
	"sort"

	"riso-reel/pkg/geometry"
)

// Strategy identifies how a grid was produced.
type Strategy int

const (
	// StrategyExact scales the layout printed in the marker.
	StrategyExact Strategy = iota
	// StrategyPercentage estimates margins from rows and columns only.
	StrategyPercentage
	// StrategyContent infers the grid from the page content alone.
	StrategyContent
	// StrategyManual is a grid supplied by the user.
	StrategyManual
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyPercentage:
		return "percentage"
	case StrategyContent:
		return "content"
	case StrategyManual:
		return "manual"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Cell is one thumbnail slot.
type Cell struct {
	Rect geometry.RectInt `json:"rect"`
	Row  int              `json:"row"`
	Col  int              `json:"col"`
}

// Grid is the resolved layout of one page. A Grid is never modified after it
// is built; refinement produces a new value.
type Grid struct {
	Cells      []Cell            `json:"cells"`
	Rows       int               `json:"rows"`
	Cols       int               `json:"cols"`
	CellWidth  int               `json:"cell_width"`
	CellHeight int               `json:"cell_height"`
	Origin     geometry.PointInt `json:"origin"`
	SpacingX   int               `json:"spacing_x"`
	SpacingY   int               `json:"spacing_y"`
	FrameCount *int              `json:"frame_count,omitempty"`
	Strategy   Strategy          `json:"strategy"`
	Refined    int               `json:"refined"`
}

// Cell returns the cell at row, col.
func (g Grid) Cell(row, col int) (Cell, bool) {
	for _, c := range g.Cells {
		if c.Row == row && c.Col == col {
			return c, true
		}
	}
	return Cell{}, false
}

// InOrder returns the cells sorted by row then column, truncated to the
// frame count when one is set.
func (g Grid) InOrder() []Cell {
	ordered := make([]Cell, len(g.Cells))
	copy(ordered, g.Cells)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Row != ordered[j].Row {
			return ordered[i].Row < ordered[j].Row
		}
		return ordered[i].Col < ordered[j].Col
	})
	if g.FrameCount != nil && *g.FrameCount < len(ordered) {
		ordered = ordered[:max(*g.FrameCount, 0)]
	}
	return ordered
}

// withCells returns a copy of g holding cells instead of its own.
func (g Grid) withCells(cells []Cell) Grid {
	out := g
	out.Cells = cells
	return out
}

// uniform lays out rows x cols cells of one size from origin with a fixed pitch.
func uniform(rows, cols int, origin geometry.PointInt, cellW, cellH, spacingX, spacingY int) []Cell {
	cells := make([]Cell, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cells = append(cells, Cell{
				Rect: geometry.RectInt{
					X:      origin.X + col*(cellW+spacingX),
					Y:      origin.Y + row*(cellH+spacingY),
					Width:  cellW,
					Height: cellH,
				},
				Row: row,
				Col: col,
			})
		}
	}
	return cells
}

// capFrames limits a declared frame count to the number of cells.
func capFrames(frameCount *int, rows, cols int) *int {
	if frameCount == nil {
		return nil
	}
	n := min(*frameCount, rows*cols)
	return &n
}
