package grid

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"riso-reel/pkg/geometry"
)

const (
	// valleyMinDistance joins bright profile points closer than this into
	// one inter-cell gap.
	valleyMinDistance = 50
	// maxSmoothKernel caps the Gaussian kernel used on projection profiles.
	maxSmoothKernel = 21
	// blobKeepRatio is the smallest blob area, relative to the largest,
	// that still counts as part of the grid region.
	blobKeepRatio = 0.5
)

// Blob is a connected ink region found on a page.
type Blob struct {
	Box  geometry.RectInt
	Area float64
}

// GridRegion picks the area of the page holding the thumbnails. The largest
// blob seeds the region and blobs of comparable size extend it, which drops
// headers and labels. ok is false when the seed is smaller than minSize in
// either dimension.
func GridRegion(blobs []Blob, width, height, minSize int) (geometry.RectInt, bool) {
	if len(blobs) == 0 {
		return geometry.RectInt{}, false
	}
	seed := blobs[0]
	for _, b := range blobs[1:] {
		if b.Area > seed.Area {
			seed = b
		}
	}
	if seed.Box.Width < minSize || seed.Box.Height < minSize {
		return geometry.RectInt{}, false
	}

	x0, y0 := seed.Box.X, seed.Box.Y
	x1, y1 := seed.Box.Right(), seed.Box.Bottom()
	for _, b := range blobs {
		if b.Area < blobKeepRatio*seed.Area {
			continue
		}
		x0, y0 = min(x0, b.Box.X), min(y0, b.Box.Y)
		x1, y1 = max(x1, b.Box.Right()), max(y1, b.Box.Bottom())
	}

	pad := max(5, int(float64(min(x1-x0, y1-y0))*0.01))
	region := geometry.RectInt{X: x0 - pad, Y: y0 - pad, Width: x1 - x0 + 2*pad, Height: y1 - y0 + 2*pad}
	return region.Clamp(width, height), true
}

// Content divides region evenly using the gaps found in its projection
// profiles. Profiles must be bright where the page is blank. When either
// axis shows no gaps the fallback shape from p is used.
func Content(region geometry.RectInt, rowProfile, colProfile []float64, h Hints, p Params) Grid {
	rowGaps := Valleys(rowProfile)
	colGaps := Valleys(colProfile)

	rows, cols := len(rowGaps)+1, len(colGaps)+1
	if len(rowGaps) == 0 || len(colGaps) == 0 {
		rows, cols = p.FallbackRows, p.FallbackCols
	}

	cellW := region.Width / cols
	cellH := region.Height / rows
	origin := geometry.PointInt{X: region.X, Y: region.Y}
	return Grid{
		Cells:      uniform(rows, cols, origin, cellW, cellH, 0, 0),
		Rows:       rows,
		Cols:       cols,
		CellWidth:  cellW,
		CellHeight: cellH,
		Origin:     origin,
		FrameCount: capFrames(h.FrameCount, rows, cols),
		Strategy:   StrategyContent,
	}
}

// Valleys returns the centres of the bright runs in a projection profile,
// ignoring runs within a twentieth of either end.
func Valleys(profile []float64) []int {
	smoothed, ok := SmoothProfile(profile)
	if !ok {
		return nil
	}

	mean, std := stat.PopMeanStdDev(smoothed, nil)
	threshold := mean + 0.5*std

	var centres []int
	start, end := -1, -1
	for i, v := range smoothed {
		if v <= threshold {
			continue
		}
		switch {
		case start < 0:
			start, end = i, i
		case i-end < valleyMinDistance:
			end = i
		default:
			centres = append(centres, (start+end)/2)
			start, end = i, i
		}
	}
	if start < 0 {
		return nil
	}
	centres = append(centres, (start+end)/2)

	n := len(profile)
	edge := n / 20
	valleys := centres[:0]
	for _, c := range centres {
		if c > edge && c < n-edge {
			valleys = append(valleys, c)
		}
	}
	return valleys
}

// SmoothProfile applies a Gaussian whose kernel is a tenth of the profile
// length, capped at 21 and always odd. Profiles too short for a 3-tap kernel
// are not smoothed and ok is false.
func SmoothProfile(profile []float64) ([]float64, bool) {
	k := min(maxSmoothKernel, len(profile)/10)
	if k%2 == 0 {
		k++
	}
	if k < 3 {
		return nil, false
	}

	kernel := gaussianKernel(k)
	half := k / 2
	n := len(profile)
	out := make([]float64, n)
	for i := range profile {
		sum := 0.0
		for j, w := range kernel {
			sum += w * profile[reflect101(i+j-half, n)]
		}
		out[i] = sum
	}
	return out, true
}

// gaussianKernel returns a normalized kernel of size k using the sigma
// OpenCV derives when none is given.
func gaussianKernel(k int) []float64 {
	sigma := 0.3*((float64(k)-1)*0.5-1) + 0.8
	half := k / 2
	kernel := make([]float64, k)
	sum := 0.0
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflect101 mirrors an out-of-range index without repeating the edge sample.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
