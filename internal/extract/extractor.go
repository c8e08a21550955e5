// Package extract cuts frame images out of a scanned page along a resolved grid.
package extract

import (
	"image"
	"image/draw"
	"log/slog"

	"riso-reel/internal/config"
	"riso-reel/internal/grid"
	"riso-reel/internal/logging"
	"riso-reel/pkg/colorutil"
	"riso-reel/pkg/geometry"
)

// PlaceholderSize is the edge length of the frame substituted for a cell
// that cannot be cropped.
const PlaceholderSize = 10

// Options toggles the extraction steps.
type Options struct {
	// BorderCrop trims this many pixels from every side of each cell.
	BorderCrop int
	// Sharpen applies a mild unsharp mask after cropping.
	Sharpen bool
	// Contrast applies a subtle contrast boost after cropping.
	Contrast bool
	// Perspective warps the page using corner markers before cropping.
	Perspective bool
}

// OptionsFromConfig maps the [extract] config section.
func OptionsFromConfig(c config.Extract) Options {
	return Options{
		BorderCrop:  c.BorderCrop,
		Sharpen:     c.Sharpen,
		Contrast:    c.Contrast,
		Perspective: c.Perspective,
	}
}

// Extractor crops frames from pages.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

// New creates an extractor.
func New(opts Options, logger *slog.Logger) *Extractor {
	return &Extractor{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "extract"),
	}
}

// Options returns the extractor's settings.
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract returns one frame per cell of g in reading order, truncated to the
// grid's frame count. When corners is non-nil the page is first warped so the
// four points (TL, TR, BR, BL) become the corners of the canonical page.
// A cell that falls outside the page yields a placeholder frame.
func (e *Extractor) Extract(page image.Image, g grid.Grid, corners *[4]geometry.Point2D) []*image.RGBA {
	if corners != nil {
		size := CanonicalSize(g)
		warped, err := Warp(page, *corners, size)
		if err != nil {
			e.logger.Warn("perspective correction failed, cropping unwarped page",
				logging.Error(err))
		} else {
			page = warped
		}
	}

	cells := g.InOrder()
	frames := make([]*image.RGBA, 0, len(cells))
	placeholders := 0
	for _, c := range cells {
		frame, ok := ExtractCell(page, c.Rect, e.opts.BorderCrop)
		if !ok {
			placeholders++
			frames = append(frames, frame)
			continue
		}
		frames = append(frames, e.enhance(frame))
	}

	if placeholders > 0 {
		e.logger.Warn("cells outside page replaced with placeholders",
			logging.Int("placeholders", placeholders),
			logging.Int("cells", len(cells)))
	}
	e.logger.Debug("frames extracted", logging.Int("frames", len(frames)))
	return frames
}

// enhance runs the enabled post-crop filters. A filter that fails leaves the
// frame as it was.
func (e *Extractor) enhance(frame *image.RGBA) *image.RGBA {
	if !e.opts.Sharpen && !e.opts.Contrast {
		return frame
	}
	out, err := Enhance(frame, e.opts.Sharpen, e.opts.Contrast)
	if err != nil {
		e.logger.Debug("enhancement skipped", logging.Error(err))
		return frame
	}
	return out
}

// ExtractCell copies rect, shrunk by border on every side and clamped to the
// page, into a new image. ok is false when nothing of the cell remains on the
// page, in which case a placeholder is returned.
func ExtractCell(page image.Image, rect geometry.RectInt, border int) (*image.RGBA, bool) {
	bounds := page.Bounds()
	r := rect.Inset(border)
	if r.Empty() {
		return Placeholder(), false
	}
	r = r.Clamp(bounds.Dx(), bounds.Dy())
	if r.Empty() {
		return Placeholder(), false
	}

	frame := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(frame, frame.Bounds(), page, bounds.Min.Add(image.Point{X: r.X, Y: r.Y}), draw.Src)
	return frame, true
}

// Placeholder returns a small neutral-gray frame.
func Placeholder() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorutil.Placeholder), image.Point{}, draw.Src)
	return img
}

// ExtractFrame crops the frame at a reading-order index. ok is false when the
// index is past the grid's frames.
func (e *Extractor) ExtractFrame(page image.Image, g grid.Grid, index int) (*image.RGBA, bool) {
	cells := g.InOrder()
	if index < 0 || index >= len(cells) {
		return nil, false
	}
	frame, ok := ExtractCell(page, cells[index].Rect, e.opts.BorderCrop)
	if !ok {
		return frame, true
	}
	return e.enhance(frame), true
}
