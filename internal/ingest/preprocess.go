package ingest

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"riso-reel/internal/cvutil"
	"riso-reel/pkg/geometry"
)

// CropParams controls scanner-border removal.
type CropParams struct {
	// Threshold is the paper brightness level.
	Threshold float64
	// Ratio scales Threshold; rows and columns darker than the product hold content.
	Ratio float64
	// Margin is added around the content box on every side.
	Margin int
	// MaxLoss is the largest fraction of the page area a crop may remove.
	MaxLoss float64
}

// DefaultCropParams returns the tuned crop constants.
func DefaultCropParams() CropParams {
	return CropParams{Threshold: 240, Ratio: 0.7, Margin: 10, MaxLoss: 0.5}
}

// Orientation reads the EXIF orientation tag of a file. It returns 1, the
// upright value, when the file has no readable tag.
func Orientation(path string) int {
	file, err := os.Open(path)
	if err != nil {
		return 1
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// ApplyOrientation rotates an image so an EXIF-tagged photo reads upright.
// Mirrored orientations are left alone.
func ApplyOrientation(img *image.RGBA, orientation int) (*image.RGBA, error) {
	var code gocv.RotateFlag
	switch orientation {
	case 3:
		code = gocv.Rotate180Clockwise
	case 6:
		code = gocv.Rotate90Clockwise
	case 8:
		code = gocv.Rotate90CounterClockwise
	default:
		return img, nil
	}

	src, err := cvutil.ImageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("rotate: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Rotate(src, &dst, code)
	return cvutil.MatToImage(dst)
}

// CropBounds finds the content box from per-row and per-column mean
// brightness. ok is false when there is no content or when the crop would
// remove more of the page than p allows.
func CropBounds(rowMeans, colMeans []float64, p CropParams) (geometry.RectInt, bool) {
	limit := p.Threshold * p.Ratio
	dark := func(v float64) bool { return v < limit }

	first, last, okRows := cvutil.Span(rowMeans, dark)
	left, right, okCols := cvutil.Span(colMeans, dark)
	if !okRows || !okCols {
		return geometry.RectInt{}, false
	}

	height, width := len(rowMeans), len(colMeans)
	top := max(0, first-p.Margin)
	bottom := min(height, last+p.Margin)
	left = max(0, left-p.Margin)
	right = min(width, right+p.Margin)

	box := geometry.RectInt{X: left, Y: top, Width: right - left, Height: bottom - top}
	if float64(box.Area()) < float64(width*height)*(1-p.MaxLoss) {
		return geometry.RectInt{}, false
	}
	return box, true
}

// AutoCrop trims scanner borders. ok is false when the page is returned as is.
func AutoCrop(img *image.RGBA, p CropParams) (*image.RGBA, bool) {
	gray, err := cvutil.GrayFromImage(img)
	if err != nil {
		return img, false
	}
	defer gray.Close()

	box, ok := CropBounds(cvutil.RowMeans(gray), cvutil.ColMeans(gray), p)
	if !ok || box == (geometry.RectInt{Width: gray.Cols(), Height: gray.Rows()}) {
		return img, false
	}

	cropped := image.NewRGBA(image.Rect(0, 0, box.Width, box.Height))
	draw.Draw(cropped, cropped.Bounds(), img, img.Bounds().Min.Add(image.Point{X: box.X, Y: box.Y}), draw.Src)
	return cropped, true
}

// WhiteBalance stretches each channel so its low and high percentiles map
// to 0 and 255. percentile is the upper point, e.g. 99; the lower point
// mirrors it.
func WhiteBalance(img *image.RGBA, percentile float64) *image.RGBA {
	var hist [3][256]float64
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			hist[0][row[x*4]]++
			hist[1][row[x*4+1]]++
			hist[2][row[x*4+2]]++
		}
	}

	var lut [3][256]uint8
	for c := range hist {
		lut[c] = stretchTable(hist[c][:], percentile)
	}

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x*4] = lut[0][src[x*4]]
			dst[x*4+1] = lut[1][src[x*4+1]]
			dst[x*4+2] = lut[2][src[x*4+2]]
			dst[x*4+3] = src[x*4+3]
		}
	}
	return out
}

// stretchTable builds the lookup table for one channel histogram. A channel
// whose percentiles coincide maps to itself.
func stretchTable(hist []float64, percentile float64) [256]uint8 {
	var values, weights []float64
	for v, n := range hist {
		if n > 0 {
			values = append(values, float64(v))
			weights = append(weights, n)
		}
	}

	var table [256]uint8
	for v := range table {
		table[v] = uint8(v)
	}
	if len(values) == 0 {
		return table
	}

	low := stat.Quantile((100-percentile)/100, stat.Empirical, values, weights)
	high := stat.Quantile(percentile/100, stat.Empirical, values, weights)
	if high <= low {
		return table
	}
	for v := range table {
		scaled := (float64(v) - low) / (high - low) * 255
		table[v] = uint8(min(max(scaled, 0), 255))
	}
	return table
}
