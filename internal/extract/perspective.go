package extract

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"riso-reel/internal/cvutil"
	"riso-reel/internal/grid"
	"riso-reel/pkg/geometry"
)

// CanonicalSize returns the page size implied by a grid: the cells, the
// gaps between them and the origin offset repeated on the far side.
func CanonicalSize(g grid.Grid) geometry.Size {
	return geometry.Size{
		Width:  g.Cols*(g.CellWidth+g.SpacingX) - g.SpacingX + 2*g.Origin.X,
		Height: g.Rows*(g.CellHeight+g.SpacingY) - g.SpacingY + 2*g.Origin.Y,
	}
}

// Warp maps the quadrilateral given by corners (TL, TR, BR, BL) onto an
// upright rectangle of the given size.
func Warp(page image.Image, corners [4]geometry.Point2D, size geometry.Size) (*image.RGBA, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("warp: invalid target size %dx%d", size.Width, size.Height)
	}

	src, err := cvutil.ImageToMat(page)
	if err != nil {
		return nil, fmt.Errorf("warp: %w", err)
	}
	defer src.Close()

	from := make([]image.Point, len(corners))
	for i, c := range corners {
		from[i] = c.Round().ToImage()
	}
	to := []image.Point{
		{X: 0, Y: 0},
		{X: size.Width, Y: 0},
		{X: size.Width, Y: size.Height},
		{X: 0, Y: size.Height},
	}

	fromVec := gocv.NewPointVectorFromPoints(from)
	defer fromVec.Close()
	toVec := gocv.NewPointVectorFromPoints(to)
	defer toVec.Close()

	transform := gocv.GetPerspectiveTransform(fromVec, toVec)
	defer transform.Close()
	if transform.Empty() {
		return nil, fmt.Errorf("warp: degenerate corner quadrilateral")
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspectiveWithParams(src, &dst, transform, image.Point{X: size.Width, Y: size.Height},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	return cvutil.MatToImage(dst)
}
