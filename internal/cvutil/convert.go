// Package cvutil bridges Go images and OpenCV matrices.
package cvutil

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// stripes runs fn over [0,height) split into one horizontal stripe per CPU.
func stripes(height int, fn func(yStart, yEnd int)) {
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			fn(yStart, yEnd)
		}(startY, endY)
	}
	wg.Wait()
}

// ImageToMat converts a Go image to a BGR gocv.Mat. The caller owns the result.
func ImageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	data := make([]byte, width*height*3)
	rgba, isRGBA := img.(*image.RGBA)

	stripes(height, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			row := data[y*width*3 : (y+1)*width*3]
			if isRGBA {
				src := rgba.Pix[rgba.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
				for x := 0; x < width; x++ {
					// OpenCV uses BGR order
					row[x*3+0] = src[x*4+2]
					row[x*3+1] = src[x*4+1]
					row[x*3+2] = src[x*4+0]
				}
				continue
			}
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				row[x*3+0] = uint8(b >> 8)
				row[x*3+1] = uint8(g >> 8)
				row[x*3+2] = uint8(r >> 8)
			}
		}
	})

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create mat: %w", err)
	}
	return mat, nil
}

// MatToImage converts a continuous 8-bit gray or BGR gocv.Mat to an *image.RGBA.
// Regions must be cloned before conversion.
func MatToImage(mat gocv.Mat) (*image.RGBA, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	h := mat.Rows()
	w := mat.Cols()
	channels := mat.Channels()
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	data := mat.ToBytes()
	if len(data) < w*h*channels {
		return nil, fmt.Errorf("mat data too short: %d bytes", len(data))
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stripes(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			dst := img.Pix[y*img.Stride:]
			src := data[y*w*channels:]
			for x := 0; x < w; x++ {
				if channels == 1 {
					v := src[x]
					dst[x*4+0], dst[x*4+1], dst[x*4+2] = v, v, v
				} else {
					dst[x*4+0] = src[x*3+2]
					dst[x*4+1] = src[x*3+1]
					dst[x*4+2] = src[x*3+0]
				}
				dst[x*4+3] = 255
			}
		}
	})

	return img, nil
}

// ToGray returns a single-channel copy of a BGR or gray mat.
func ToGray(mat gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if mat.Channels() == 1 {
		mat.CopyTo(&gray)
		return gray
	}
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	return gray
}

// GrayFromImage converts a Go image straight to a single-channel mat.
func GrayFromImage(img image.Image) (gocv.Mat, error) {
	bgr, err := ImageToMat(img)
	if err != nil {
		return bgr, err
	}
	defer bgr.Close()
	return ToGray(bgr), nil
}
