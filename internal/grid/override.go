package grid

import (
	"encoding/json"
	"fmt"
	"os"

	"riso-reel/pkg/geometry"
)

// Override is a hand-edited grid for one page. When present it replaces
// detection for that page entirely.
type Override struct {
	PageIndex       int                `json:"page_index"`
	Cells           []geometry.RectInt `json:"cells"`
	Rows            int                `json:"rows"`
	Cols            int                `json:"cols"`
	Spacing         int                `json:"spacing"`
	ExcludedIndices []int              `json:"excluded_indices"`
}

// UnmarshalJSON accepts cells either as objects or as [x, y, w, h] tuples.
func (o *Override) UnmarshalJSON(data []byte) error {
	type plain Override
	var raw struct {
		plain
		Cells []json.RawMessage `json:"cells"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Override(raw.plain)
	o.Cells = make([]geometry.RectInt, 0, len(raw.Cells))
	for i, cell := range raw.Cells {
		var tuple []int
		if err := json.Unmarshal(cell, &tuple); err == nil {
			if len(tuple) != 4 {
				return fmt.Errorf("cell %d: want 4 values, got %d", i, len(tuple))
			}
			o.Cells = append(o.Cells, geometry.NewRectInt(tuple[0], tuple[1], tuple[2], tuple[3]))
			continue
		}
		var rect geometry.RectInt
		if err := json.Unmarshal(cell, &rect); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
		o.Cells = append(o.Cells, rect)
	}
	return nil
}

// Grid converts the override to a grid. Cells keep their listed order and are
// numbered row-major using the declared column count.
func (o Override) Grid() Grid {
	cols := max(o.Cols, 1)
	cells := make([]Cell, len(o.Cells))
	for i, r := range o.Cells {
		cells[i] = Cell{Rect: r, Row: i / cols, Col: i % cols}
	}

	rows := o.Rows
	if needed := (len(cells) + cols - 1) / cols; needed > rows {
		rows = needed
	}

	g := Grid{
		Cells:    cells,
		Rows:     rows,
		Cols:     cols,
		SpacingX: o.Spacing,
		SpacingY: o.Spacing,
		Strategy: StrategyManual,
	}
	if len(o.Cells) > 0 {
		first := o.Cells[0]
		g.CellWidth, g.CellHeight = first.Width, first.Height
		g.Origin = geometry.PointInt{X: first.X, Y: first.Y}
	}
	return g
}

// LoadOverrides reads a JSON list of overrides keyed by page index.
func LoadOverrides(path string) (map[int]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	var list []Override
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}

	byPage := make(map[int]Override, len(list))
	for _, o := range list {
		if o.PageIndex < 0 {
			return nil, fmt.Errorf("override page_index %d is negative", o.PageIndex)
		}
		if _, dup := byPage[o.PageIndex]; dup {
			return nil, fmt.Errorf("duplicate override for page_index %d", o.PageIndex)
		}
		byPage[o.PageIndex] = o
	}
	return byPage, nil
}
