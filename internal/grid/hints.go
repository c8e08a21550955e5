package grid

import (
	"riso-reel/internal/config"
	"riso-reel/internal/metadata"
)

// Hints is whatever layout knowledge is available for a page.
type Hints struct {
	Rows       int
	Cols       int
	FrameCount *int
	CellWidth  *int
	CellHeight *int
	Margin     *int
	Spacing    *int
}

// HintsFromMetadata copies layout fields from decoded sheet metadata.
// A nil record yields empty hints.
func HintsFromMetadata(m *metadata.SheetMetadata) Hints {
	if m == nil {
		return Hints{}
	}
	fc := m.FrameCount
	return Hints{
		Rows:       m.Rows,
		Cols:       m.Cols,
		FrameCount: &fc,
		CellWidth:  m.CellWidth,
		CellHeight: m.CellHeight,
		Margin:     m.Margin,
		Spacing:    m.Spacing,
	}
}

// HasGridShape reports whether rows and columns are known.
func (h Hints) HasGridShape() bool {
	return h.Rows > 0 && h.Cols > 0
}

// HasExactLayout reports whether every value the exact strategy needs is set.
func (h Hints) HasExactLayout() bool {
	return h.HasGridShape() &&
		h.CellWidth != nil && h.CellHeight != nil && h.Margin != nil && h.Spacing != nil &&
		*h.CellWidth > 0 && *h.CellHeight > 0 && *h.Margin >= 0 && *h.Spacing >= 0
}

// Select picks the most precise strategy the hints allow.
func Select(h Hints) Strategy {
	switch {
	case h.HasExactLayout():
		return StrategyExact
	case h.HasGridShape():
		return StrategyPercentage
	default:
		return StrategyContent
	}
}

// Params holds the tuned constants used by the resolver.
type Params struct {
	MarginPercent  float64
	SpacingPercent float64
	NearWhite      float64
	InkRatio       float64
	MinRegion      int
	FallbackRows   int
	FallbackCols   int
	Refine         bool
	RenderWidth    int
	RenderHeight   int
	PaperTolerance float64
}

// DefaultParams mirrors the default configuration.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Grid)
}

// ParamsFromConfig converts the [grid] config section.
func ParamsFromConfig(g config.Grid) Params {
	return Params{
		MarginPercent:  g.MarginPercent,
		SpacingPercent: g.SpacingPercent,
		NearWhite:      g.NearWhite,
		InkRatio:       0.7,
		MinRegion:      g.MinRegion,
		FallbackRows:   max(g.FallbackRows, 1),
		FallbackCols:   max(g.FallbackCols, 1),
		Refine:         g.Refine,
		RenderWidth:    g.RenderWidth,
		RenderHeight:   g.RenderHeight,
		PaperTolerance: g.PaperTolerance,
	}
}
