package assemble

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"riso-reel/internal/config"
)

var (
	// ErrNoFrames is returned when an export is attempted with nothing to write.
	ErrNoFrames = errors.New("no frames to assemble")
	// ErrInvalidUpscale is returned for an upscale factor outside 1-4.
	ErrInvalidUpscale = errors.New("upscale factor must be between 1 and 4")
)

// MaxUpscale is the largest supported upscale factor.
const MaxUpscale = 4

// Resolution is a fixed output frame size.
type Resolution struct {
	Width  int
	Height int
}

// Settings controls how frames are turned into output.
type Settings struct {
	FPS float64
	// FrameDuration holds each frame for this many seconds when positive.
	FrameDuration float64
	Upscale       int
	// Resolution forces every frame to one size when set.
	Resolution *Resolution
	// MaintainAspect letterboxes frames into Resolution instead of stretching.
	MaintainAspect bool
	// Loop is the GIF loop count. Zero loops forever.
	Loop        int
	Prefix      string
	StartNumber int
	FFmpeg      string
}

// DefaultSettings returns the built-in export settings.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default().Export)
}

// SettingsFromConfig maps the [export] config section.
func SettingsFromConfig(c config.Export) Settings {
	return Settings{
		FPS:            c.FPS,
		FrameDuration:  c.FrameDuration,
		Upscale:        c.Upscale,
		MaintainAspect: true,
		Loop:           c.Loop,
		Prefix:         c.Prefix,
		StartNumber:    c.StartNumber,
		FFmpeg:         c.FFmpeg,
	}
}

// Validate checks the settings before any frame is written.
func (s Settings) Validate() error {
	if s.FPS <= 0 || math.IsNaN(s.FPS) || math.IsInf(s.FPS, 0) {
		return fmt.Errorf("fps must be positive, got %v", s.FPS)
	}
	if s.FrameDuration < 0 {
		return fmt.Errorf("frame duration must not be negative, got %v", s.FrameDuration)
	}
	if s.Upscale < 1 || s.Upscale > MaxUpscale {
		return fmt.Errorf("%w: %d", ErrInvalidUpscale, s.Upscale)
	}
	if s.Resolution != nil && (s.Resolution.Width <= 0 || s.Resolution.Height <= 0) {
		return fmt.Errorf("resolution must be positive, got %dx%d", s.Resolution.Width, s.Resolution.Height)
	}
	return nil
}

// RepeatCount is how many times each frame is written to a video so it stays
// on screen for FrameDuration.
func (s Settings) RepeatCount() int {
	if s.FrameDuration <= 0 {
		return 1
	}
	return max(1, int(math.Round(s.FPS*s.FrameDuration)))
}

// FrameSeconds is how long one frame is shown.
func (s Settings) FrameSeconds() float64 {
	if s.FrameDuration > 0 {
		return s.FrameDuration
	}
	return 1 / s.FPS
}

// GIFDelay is the per-frame delay in hundredths of a second.
func (s Settings) GIFDelay() int {
	return max(1, int(math.Round(s.FrameSeconds()*100)))
}

var codecs = map[string]string{
	".mp4": "mp4v",
	".mov": "mp4v",
	".mkv": "mp4v",
	".avi": "XVID",
}

// Codec returns the fourcc used for a video path. Unknown extensions use mp4v.
func Codec(path string) string {
	if c, ok := codecs[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return "mp4v"
}
