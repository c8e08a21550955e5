package cvutil

import (
	"gocv.io/x/gocv"
)

// RowMeans returns the mean value of every row of a continuous gray mat.
func RowMeans(gray gocv.Mat) []float64 {
	h, w := gray.Rows(), gray.Cols()
	data := gray.ToBytes()
	means := make([]float64, h)
	if w == 0 {
		return means
	}
	for y := 0; y < h; y++ {
		sum := 0
		for _, v := range data[y*w : (y+1)*w] {
			sum += int(v)
		}
		means[y] = float64(sum) / float64(w)
	}
	return means
}

// ColMeans returns the mean value of every column of a continuous gray mat.
func ColMeans(gray gocv.Mat) []float64 {
	h, w := gray.Rows(), gray.Cols()
	data := gray.ToBytes()
	sums := make([]int, w)
	for y := 0; y < h; y++ {
		for x, v := range data[y*w : (y+1)*w] {
			sums[x] += int(v)
		}
	}
	means := make([]float64, w)
	if h == 0 {
		return means
	}
	for x, s := range sums {
		means[x] = float64(s) / float64(h)
	}
	return means
}

// Span returns the first and last index whose value satisfies keep.
// ok is false when no index matches.
func Span(values []float64, keep func(float64) bool) (first, last int, ok bool) {
	first, last = -1, -1
	for i, v := range values {
		if keep(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}
