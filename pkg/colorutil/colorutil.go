// Package colorutil provides shared color utilities.
package colorutil

import (
	"image/color"
)

// Common colors used throughout the application.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}

	// Placeholder fills frames whose cell could not be cropped.
	Placeholder = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Luma returns the ITU-R 601 luma of an 8-bit RGB triple, the same weights
// OpenCV uses for BGR to gray conversion.
func Luma(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b) + 500) / 1000)
}

// LumaOf returns the luma of an arbitrary color.
func LumaOf(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	return Luma(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
