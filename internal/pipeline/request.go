package pipeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"riso-reel/internal/assemble"
	"riso-reel/internal/grid"
	"riso-reel/internal/ingest"
	"riso-reel/internal/metadata"
)

// ErrNoFramesExtracted is returned when no page yields a single frame.
var ErrNoFramesExtracted = errors.New("no frames extracted from any page")

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Format is the kind of output a run writes.
type Format int

const (
	FormatVideo Format = iota
	FormatGIF
	FormatSequence
)

func (f Format) String() string {
	switch f {
	case FormatVideo:
		return "video"
	case FormatGIF:
		return "gif"
	case FormatSequence:
		return "sequence"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// FormatFor picks the output format from the output path: .gif writes a GIF,
// a path without an extension or an existing directory writes a PNG
// sequence, anything else a video.
func FormatFor(output string) Format {
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return FormatSequence
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".gif":
		return FormatGIF
	case "":
		return FormatSequence
	default:
		return FormatVideo
	}
}

// Request describes one reconstruction.
type Request struct {
	// Source is an image file, a folder of images or a PDF.
	Source string
	// Output is the video or GIF file, or the sequence directory.
	Output string
	// Audio is an optional track muxed into video output.
	Audio string
	// Overrides is an optional JSON file of hand-edited grids.
	Overrides string
	// Rows and Cols describe the grid for pages without a marker.
	Rows int
	Cols int
	// FrameCount caps the frames taken from marker-less pages.
	FrameCount *int
	// FPS overrides both the marker and the configured frame rate.
	FPS *float64
	// Progress, when set, is called after each page is extracted.
	Progress func(done, total int)
}

// Validate rejects unusable input before any scan is read.
func (r Request) Validate() error {
	if err := r.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("source path is required")
	}
	if _, err := os.Stat(r.Source); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ingest.ErrNotFound, r.Source)
		}
		return fmt.Errorf("stat source: %w", err)
	}
	if strings.TrimSpace(r.Output) == "" {
		return errors.New("output path is required")
	}
	if r.Rows < 0 || r.Cols < 0 {
		return fmt.Errorf("rows and cols must not be negative, got %dx%d", r.Rows, r.Cols)
	}
	if (r.Rows == 0) != (r.Cols == 0) {
		return errors.New("rows and cols must be given together")
	}
	if r.FrameCount != nil && *r.FrameCount < 0 {
		return fmt.Errorf("frame count must not be negative, got %d", *r.FrameCount)
	}
	if r.FPS != nil && (*r.FPS <= 0 || math.IsNaN(*r.FPS) || math.IsInf(*r.FPS, 0)) {
		return fmt.Errorf("fps must be positive, got %v", *r.FPS)
	}
	if r.Overrides != "" {
		if _, err := os.Stat(r.Overrides); err != nil {
			return fmt.Errorf("overrides file: %w", err)
		}
	}
	return nil
}

// hints is the layout known for a page: its marker when it has one, else the
// request's grid shape.
func (r Request) hints(m *metadata.SheetMetadata) grid.Hints {
	if m != nil {
		return grid.HintsFromMetadata(m)
	}
	return grid.Hints{Rows: r.Rows, Cols: r.Cols, FrameCount: r.FrameCount}
}

// exportSettings resolves the frame rate: the request, then the markers,
// then the configuration.
func (r Request) exportSettings(base assemble.Settings, combined *ingest.Settings) assemble.Settings {
	s := base
	switch {
	case r.FPS != nil:
		s.FPS = *r.FPS
	case combined != nil && combined.FPS != nil && *combined.FPS > 0:
		s.FPS = *combined.FPS
	}
	return s
}
