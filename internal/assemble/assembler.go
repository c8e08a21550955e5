// Package assemble turns extracted frames back into a video, a GIF or a
// numbered image sequence.
package assemble

import (
	"fmt"
	"image"
	"log/slog"

	"riso-reel/internal/extract"
	"riso-reel/internal/logging"
	"riso-reel/pkg/geometry"
)

// Info summarises what an export would produce.
type Info struct {
	FrameCount int     `json:"frame_count"`
	FPS        float64 `json:"fps"`
	// Duration is the playback length in seconds.
	Duration          float64 `json:"duration"`
	DurationFormatted string  `json:"duration_formatted"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
}

// Assembler accumulates frames and exports them.
type Assembler struct {
	settings Settings
	frames   []*image.RGBA
	pages    *MultiPage
	run      commandRunner
	logger   *slog.Logger
}

// New creates an assembler.
func New(settings Settings, logger *slog.Logger) *Assembler {
	return &Assembler{
		settings: settings,
		pages:    NewMultiPage(),
		run:      defaultCommandRunner,
		logger:   logging.NewComponentLogger(logger, "assemble"),
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (a *Assembler) WithCommandRunner(r commandRunner) {
	if r != nil {
		a.run = r
	}
}

// Settings returns the export settings.
func (a *Assembler) Settings() Settings {
	return a.settings
}

// AddFrames appends frames to the export list.
func (a *Assembler) AddFrames(frames ...*image.RGBA) {
	a.frames = append(a.frames, frames...)
}

// AddPage stores the frames of one page for AssemblePages. See MultiPage.AddPage.
func (a *Assembler) AddPage(frames []*image.RGBA, page *int) int {
	return a.pages.AddPage(frames, page)
}

// Pages exposes the page collector.
func (a *Assembler) Pages() *MultiPage {
	return a.pages
}

// AssemblePages replaces the export list with the stored pages in page order
// and returns any page numbers missing from the run. Gaps are logged, not
// treated as failures.
func (a *Assembler) AssemblePages() []int {
	ok, missing := a.pages.ValidateContinuity()
	if !ok {
		a.logger.Warn("pages missing from sequence",
			logging.Any("missing", missing),
			logging.Int("pages", a.pages.PageCount()))
	}
	a.frames = a.pages.Frames()
	a.logger.Debug("pages assembled",
		logging.Int("pages", a.pages.PageCount()),
		logging.Int("frames", len(a.frames)))
	return missing
}

// Frames returns the export list.
func (a *Assembler) Frames() []*image.RGBA {
	return a.frames
}

// FrameCount is the length of the export list.
func (a *Assembler) FrameCount() int {
	return len(a.frames)
}

// Clear drops every frame and page.
func (a *Assembler) Clear() {
	a.frames = nil
	a.pages.Clear()
}

// Info reports the export size and playback length.
func (a *Assembler) Info() Info {
	n := len(a.frames)
	info := Info{FrameCount: n, FPS: a.settings.FPS}
	if a.settings.FrameDuration > 0 {
		info.Duration = float64(n) * a.settings.FrameDuration
	} else if a.settings.FPS > 0 {
		info.Duration = float64(n) / a.settings.FPS
	}
	info.DurationFormatted = FormatDuration(info.Duration)
	if n > 0 {
		size := a.outputSize()
		info.Width, info.Height = size.Width, size.Height
	}
	return info
}

// FormatDuration renders seconds as MM:SS.ss.
func FormatDuration(seconds float64) string {
	minutes := int(seconds / 60)
	return fmt.Sprintf("%02d:%05.2f", minutes, seconds-float64(minutes*60))
}

// Preview returns frame index scaled down to fit maxWidth x maxHeight. Frames
// already inside the box are returned unscaled.
func (a *Assembler) Preview(index, maxWidth, maxHeight int) (*image.RGBA, bool) {
	if index < 0 || index >= len(a.frames) {
		return nil, false
	}
	frame := a.frames[index]
	size := geometry.SizeOf(frame.Bounds())
	if size.Width <= maxWidth && size.Height <= maxHeight {
		return frame, true
	}
	return extract.Resize(frame, maxWidth, maxHeight, true), true
}

// outputSize is the size every exported frame is brought to: the forced
// resolution, or else the first frame scaled by the upscale factor.
func (a *Assembler) outputSize() geometry.Size {
	if r := a.settings.Resolution; r != nil {
		return geometry.Size{Width: r.Width, Height: r.Height}
	}
	first := geometry.SizeOf(a.frames[0].Bounds())
	factor := max(a.settings.Upscale, 1)
	return geometry.Size{Width: first.Width * factor, Height: first.Height * factor}
}

// prepare applies upscaling and the output size to one frame.
func (a *Assembler) prepare(frame *image.RGBA, size geometry.Size) *image.RGBA {
	if a.settings.Upscale > 1 {
		frame = extract.Upscale(frame, a.settings.Upscale)
	}
	if geometry.SizeOf(frame.Bounds()) == size {
		return frame
	}
	if a.settings.Resolution != nil && !a.settings.MaintainAspect {
		return extract.Resize(frame, size.Width, size.Height, false)
	}
	return extract.Letterbox(frame, size.Width, size.Height)
}

// prepared validates the settings and returns the frames ready to write.
func (a *Assembler) prepared() ([]*image.RGBA, geometry.Size, error) {
	if len(a.frames) == 0 {
		return nil, geometry.Size{}, ErrNoFrames
	}
	if err := a.settings.Validate(); err != nil {
		return nil, geometry.Size{}, err
	}
	size := a.outputSize()
	out := make([]*image.RGBA, len(a.frames))
	for i, f := range a.frames {
		out[i] = a.prepare(f, size)
	}
	return out, size, nil
}
