package grid

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"riso-reel/internal/cvutil"
	"riso-reel/internal/logging"
	"riso-reel/pkg/geometry"
)

// Resolver detects the thumbnail grid on page images.
type Resolver struct {
	params Params
	logger *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(params Params, logger *slog.Logger) *Resolver {
	return &Resolver{
		params: params,
		logger: logging.NewComponentLogger(logger, "grid"),
	}
}

// Params returns the resolver's constants.
func (r *Resolver) Params() Params {
	return r.params
}

// Detect resolves the grid of a page using the most precise strategy the
// hints allow, then snaps cells to content when refinement is enabled.
// It fails only for an empty image.
func (r *Resolver) Detect(img image.Image, h Hints) (Grid, error) {
	gray, err := cvutil.GrayFromImage(img)
	if err != nil {
		return Grid{}, fmt.Errorf("grid: %w", err)
	}
	defer gray.Close()

	width, height := gray.Cols(), gray.Rows()
	var g Grid
	switch Select(h) {
	case StrategyExact:
		g = Exact(width, height, h, r.params)
	case StrategyPercentage:
		var ink *geometry.RectInt
		if box, ok := InkBounds(cvutil.RowMeans(gray), cvutil.ColMeans(gray), r.params); ok {
			ink = &box
		}
		g = Percentage(width, height, h, ink, r.params)
	default:
		g = r.content(gray, h)
	}

	r.logger.Debug("grid predicted",
		logging.String("strategy", g.Strategy.String()),
		logging.Int("rows", g.Rows),
		logging.Int("cols", g.Cols),
		logging.Int("cell_width", g.CellWidth),
		logging.Int("cell_height", g.CellHeight))

	if !r.params.Refine {
		return g, nil
	}
	boxes, ok := contentBoxes(gray)
	if !ok {
		r.logger.Debug("refinement skipped, no content boxes")
		return g, nil
	}
	refined := Refine(g, boxes)
	r.logger.Debug("grid refined",
		logging.Int("snapped", refined.Refined),
		logging.Int("cells", len(refined.Cells)))
	return refined, nil
}

// content runs the content-only strategy on a grayscale page.
func (r *Resolver) content(gray gocv.Mat, h Hints) Grid {
	width, height := gray.Cols(), gray.Rows()

	blobs := blobMask(gray)
	defer blobs.Close()

	region, ok := GridRegion(findBlobs(blobs), width, height, r.params.MinRegion)
	if !ok {
		if ink, found := InkBounds(cvutil.RowMeans(gray), cvutil.ColMeans(gray), r.params); found {
			region = ink
		} else {
			region = geometry.RectInt{Width: width, Height: height}
		}
		r.logger.Debug("no dominant grid region, using ink bounds",
			logging.Int("width", region.Width),
			logging.Int("height", region.Height))
	}

	// Gaps must read bright, so profile the inverse of the blob mask.
	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(blobs, &inverted)

	view := inverted.Region(region.ToImage())
	crop := view.Clone()
	view.Close()
	defer crop.Close()

	g := Content(region, cvutil.RowMeans(crop), cvutil.ColMeans(crop), h, r.params)
	if g.Rows == r.params.FallbackRows && g.Cols == r.params.FallbackCols {
		r.logger.Debug("content analysis used fallback grid shape")
	}
	return g
}

// blobMask binarizes ink, closes small gaps and fills each external contour
// so every thumbnail becomes one solid blob.
func blobMask(gray gocv.Mat) gocv.Mat {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(gray, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 25, 10)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{5, 5})
	defer kernel.Close()

	// Closing twice: two dilations then two erosions.
	closed := binary.Clone()
	defer closed.Close()
	gocv.Dilate(closed, &closed, kernel)
	gocv.Dilate(closed, &closed, kernel)
	gocv.Erode(closed, &closed, kernel)
	gocv.Erode(closed, &closed, kernel)

	filled := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	for i := 0; i < contours.Size(); i++ {
		gocv.DrawContours(&filled, contours, i, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	}
	return filled
}

// findBlobs lists the external contours of a mask with their areas.
func findBlobs(mask gocv.Mat) []Blob {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	blobs := make([]Blob, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		blobs = append(blobs, Blob{
			Box:  geometry.FromImageRect(gocv.BoundingRect(contour)),
			Area: gocv.ContourArea(contour),
		})
	}
	return blobs
}

// contentBoxes returns the bounding boxes of external ink contours after
// removing speckle. ok is false when nothing is found.
func contentBoxes(gray gocv.Mat) ([]geometry.RectInt, bool) {
	if gray.Empty() {
		return nil, false
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(gray, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 25, 10)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{3, 3})
	defer kernel.Close()

	cleaned := gocv.NewMat()
	defer cleaned.Close()
	gocv.MorphologyEx(binary, &cleaned, gocv.MorphOpen, kernel)

	contours := gocv.FindContours(cleaned, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return nil, false
	}

	boxes := make([]geometry.RectInt, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		boxes = append(boxes, geometry.FromImageRect(gocv.BoundingRect(contours.At(i))))
	}
	return boxes, true
}
