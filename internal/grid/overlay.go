package grid

import (
	"fmt"
	"image"
	"strconv"

	"gocv.io/x/gocv"

	"riso-reel/internal/cvutil"
	"riso-reel/pkg/colorutil"
)

// Overlay draws every ordered cell of g on a copy of img, labelled with its
// frame index.
func Overlay(img image.Image, g Grid) (*image.RGBA, error) {
	canvas, err := cvutil.ImageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}
	defer canvas.Close()

	for i, c := range g.InOrder() {
		rect := c.Rect.ToImage()
		gocv.Rectangle(&canvas, rect, colorutil.Red, 2)
		gocv.PutText(&canvas, strconv.Itoa(i), image.Point{X: rect.Min.X + 5, Y: rect.Min.Y + 20},
			gocv.FontHersheySimplex, 0.5, colorutil.Red, 1)
	}
	return cvutil.MatToImage(canvas)
}
