package extract

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"riso-reel/internal/cvutil"
)

const (
	// unsharpRadius is the Gaussian sigma of the unsharp mask.
	unsharpRadius = 1.0
	// unsharpAmount is the fraction of the detail layer added back.
	unsharpAmount = 0.5
	// unsharpThreshold leaves pixels alone when they differ from the blur by
	// less than this, so flat paper grain is not amplified.
	unsharpThreshold = 3
	// contrastFactor stretches values away from the frame's mean gray.
	contrastFactor = 1.1
)

// Enhance applies the selected filters to a cropped frame and returns a new
// image. Sharpening runs before the contrast boost.
func Enhance(frame image.Image, sharpen, contrast bool) (*image.RGBA, error) {
	mat, err := cvutil.ImageToMat(frame)
	if err != nil {
		return nil, fmt.Errorf("enhance: %w", err)
	}
	defer func() { mat.Close() }()

	if sharpen {
		sharpened := unsharpMask(mat)
		mat.Close()
		mat = sharpened
	}
	if contrast {
		boosted := boostContrast(mat)
		mat.Close()
		mat = boosted
	}
	return cvutil.MatToImage(mat)
}

// unsharpMask adds back part of the difference between src and its blur
// wherever that difference reaches the threshold.
func unsharpMask(src gocv.Mat) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Point{}, unsharpRadius, unsharpRadius, gocv.BorderDefault)

	sharp := gocv.NewMat()
	defer sharp.Close()
	gocv.AddWeighted(src, 1+unsharpAmount, blurred, -unsharpAmount, 0, &sharp)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(src, blurred, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, unsharpThreshold-1, 255, gocv.ThresholdBinary)

	out := src.Clone()
	sharp.CopyToWithMask(&out, mask)
	return out
}

// boostContrast scales every channel away from the mean gray level.
func boostContrast(src gocv.Mat) gocv.Mat {
	gray := cvutil.ToGray(src)
	mean := gray.Mean().Val1
	gray.Close()

	out := gocv.NewMat()
	src.ConvertToWithParams(&out, gocv.MatTypeCV8UC3, contrastFactor, float32(mean*(1-contrastFactor)))
	return out
}
