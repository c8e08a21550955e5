package extract

import (
	"image"
	"sort"

	"gocv.io/x/gocv"

	"riso-reel/internal/cvutil"
	"riso-reel/pkg/geometry"
)

const (
	// markerThreshold is the gray level below which pixels count as marker ink.
	markerThreshold = 50
	// cornerZone is the fraction of each dimension that counts as a corner.
	cornerZone = 0.15
)

// DetectCornerMarkers finds the four square registration marks printed in
// the page corners and returns their centres ordered TL, TR, BR, BL.
// ok is false when fewer than four candidates are found.
func DetectCornerMarkers(page image.Image) ([4]geometry.Point2D, bool) {
	gray, err := cvutil.GrayFromImage(page)
	if err != nil {
		return [4]geometry.Point2D{}, false
	}
	defer gray.Close()
	return detectCornerMarkers(gray)
}

func detectCornerMarkers(gray gocv.Mat) ([4]geometry.Point2D, bool) {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, markerThreshold, 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	boxes := make([]geometry.RectInt, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		boxes = append(boxes, geometry.FromImageRect(gocv.BoundingRect(contours.At(i))))
	}
	return orderMarkers(markerCandidates(boxes, gray.Cols(), gray.Rows()))
}

// markerCandidates keeps square-ish boxes lying in a corner zone and returns
// their centres.
func markerCandidates(boxes []geometry.RectInt, width, height int) []geometry.PointInt {
	nearX := func(x int) bool {
		return float64(x) < float64(width)*cornerZone || float64(x) > float64(width)*(1-cornerZone)
	}
	nearY := func(y int) bool {
		return float64(y) < float64(height)*cornerZone || float64(y) > float64(height)*(1-cornerZone)
	}

	var centres []geometry.PointInt
	for _, b := range boxes {
		if b.Height <= 0 {
			continue
		}
		aspect := float64(b.Width) / float64(b.Height)
		if aspect <= 0.8 || aspect >= 1.2 {
			continue
		}
		if nearX(b.X) && nearY(b.Y) {
			centres = append(centres, b.Center())
		}
	}
	return centres
}

// orderMarkers takes the two highest and two lowest candidates and orders
// them clockwise from the top left.
func orderMarkers(centres []geometry.PointInt) ([4]geometry.Point2D, bool) {
	if len(centres) < 4 {
		return [4]geometry.Point2D{}, false
	}
	sorted := make([]geometry.PointInt, len(centres))
	copy(sorted, centres)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	top := []geometry.PointInt{sorted[0], sorted[1]}
	bottom := []geometry.PointInt{sorted[len(sorted)-2], sorted[len(sorted)-1]}
	byX := func(pts []geometry.PointInt) {
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	}
	byX(top)
	byX(bottom)

	return [4]geometry.Point2D{
		top[0].ToFloat(),
		top[1].ToFloat(),
		bottom[1].ToFloat(),
		bottom[0].ToFloat(),
	}, true
}
