// Package metadata encodes and decodes the layout record printed on each
// contact sheet, and searches scanned pages for it.
package metadata

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is returned by Validate for records that break a layout invariant.
var ErrInvalid = errors.New("invalid sheet metadata")

// Resolution is a width/height pair, serialized as a two-element array.
type Resolution [2]int

// Width returns the horizontal resolution.
func (r Resolution) Width() int { return r[0] }

// Height returns the vertical resolution.
func (r Resolution) Height() int { return r[1] }

// SheetMetadata is one page's declared layout. Optional fields are nil when
// unset so that an absent value never reads back as a default.
type SheetMetadata struct {
	PageNumber int `json:"page_number"`
	TotalPages int `json:"total_pages"`
	Rows       int `json:"rows"`
	Cols       int `json:"cols"`
	// FrameStart is the global index of the first usable frame on the page.
	FrameStart int `json:"frame_start"`
	// FrameCount excludes any cell occupied by the marker.
	FrameCount int `json:"frame_count"`

	FPS                *float64    `json:"fps"`
	CellWidth          *int        `json:"cell_width"`
	CellHeight         *int        `json:"cell_height"`
	Margin             *int        `json:"margin"`
	Spacing            *int        `json:"spacing"`
	VideoHash          *string     `json:"video_hash"`
	OriginalResolution *Resolution `json:"original_resolution"`
	CreatedAt          *string     `json:"created_at"`
}

// Ptr returns a pointer to v, for populating optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// Cells returns the number of grid slots on the page.
func (m SheetMetadata) Cells() int {
	return m.Rows * m.Cols
}

// HasExactLayout reports whether cell size, margin and spacing are all known.
func (m SheetMetadata) HasExactLayout() bool {
	return m.CellWidth != nil && m.CellHeight != nil && m.Margin != nil && m.Spacing != nil
}

// FrameEnd returns the global index one past the last frame on this page.
func (m SheetMetadata) FrameEnd() int {
	return m.FrameStart + m.FrameCount
}

// Validate checks the structural invariants of a record.
func (m SheetMetadata) Validate() error {
	switch {
	case m.Rows < 1 || m.Cols < 1:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalid, m.Rows, m.Cols)
	case m.TotalPages < 1:
		return fmt.Errorf("%w: total pages %d", ErrInvalid, m.TotalPages)
	case m.PageNumber < 1 || m.PageNumber > m.TotalPages:
		return fmt.Errorf("%w: page %d of %d", ErrInvalid, m.PageNumber, m.TotalPages)
	case m.FrameStart < 0 || m.FrameCount < 0:
		return fmt.Errorf("%w: frame range %d+%d", ErrInvalid, m.FrameStart, m.FrameCount)
	case m.FrameCount > m.Cells():
		return fmt.Errorf("%w: %d frames exceed %d cells", ErrInvalid, m.FrameCount, m.Cells())
	case (m.CellWidth == nil) != (m.CellHeight == nil):
		return fmt.Errorf("%w: cell size needs both width and height", ErrInvalid)
	case (m.Margin == nil) != (m.Spacing == nil):
		return fmt.Errorf("%w: margin and spacing must be set together", ErrInvalid)
	}
	if m.CellWidth != nil && (*m.CellWidth < 1 || *m.CellHeight < 1) {
		return fmt.Errorf("%w: cell size %dx%d", ErrInvalid, *m.CellWidth, *m.CellHeight)
	}
	if m.Margin != nil && (*m.Margin < 0 || *m.Spacing < 0) {
		return fmt.Errorf("%w: margin %d spacing %d", ErrInvalid, *m.Margin, *m.Spacing)
	}
	if m.FPS != nil && (*m.FPS <= 0 || math.IsInf(*m.FPS, 0) || math.IsNaN(*m.FPS)) {
		return fmt.Errorf("%w: fps %v", ErrInvalid, *m.FPS)
	}
	return nil
}

// String returns the compact form.
func (m SheetMetadata) String() string {
	return Encode(m)
}
