// Package ocr reads the printed "Page N of M" label from contact sheets.
package ocr

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// LabelChars is the character set a page label can contain.
const LabelChars = "0123456789PageofOF /"

// labelStrip is the fraction of the page height, measured from the bottom,
// where the page label is printed.
const labelStrip = 0.08

var labelPattern = regexp.MustCompile(`(?i)page\s*(\d{1,4})\s*(?:of|/)\s*(\d{1,4})`)

// Label is a page position read from printed text.
type Label struct {
	Page  int `json:"page"`
	Total int `json:"total"`
}

// ParseLabel extracts a page label from OCR output. The page must lie in
// 1..Total.
func ParseLabel(text string) (Label, bool) {
	m := labelPattern.FindStringSubmatch(text)
	if m == nil {
		return Label{}, false
	}
	page, err1 := strconv.Atoi(m[1])
	total, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || page < 1 || total < 1 || page > total {
		return Label{}, false
	}
	return Label{Page: page, Total: total}, true
}

// Engine provides page-label OCR using Tesseract.
type Engine struct {
	client *gosseract.Client
}

// NewEngine creates a new OCR engine.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Labels are not dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// PageLabel reads the label strip at the bottom of a BGR page.
func (e *Engine) PageLabel(page gocv.Mat) (Label, bool) {
	text, err := e.RecognizeRegion(page, LabelRegion(page.Cols(), page.Rows()))
	if err != nil {
		return Label{}, false
	}
	return ParseLabel(text)
}

// LabelRegion returns the strip searched for a page label.
func LabelRegion(width, height int) image.Rectangle {
	strip := max(int(float64(height)*labelStrip), 1)
	return image.Rect(0, max(height-strip, 0), width, height)
}

// RecognizeRegion performs single-line OCR on a region of an image.
func (e *Engine) RecognizeRegion(img gocv.Mat, bounds image.Rectangle) (string, error) {
	if img.Empty() {
		return "", fmt.Errorf("empty image")
	}

	bounds = bounds.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if bounds.Empty() {
		return "", fmt.Errorf("invalid region bounds")
	}

	region := img.Region(bounds)
	defer region.Close()

	processed := preprocessForOCR(region)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetWhitelist(LabelChars); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// preprocessForOCR upscales short strips and binarizes to dark text on a
// light background.
func preprocessForOCR(region gocv.Mat) gocv.Mat {
	h, w := region.Rows(), region.Cols()

	var scaled gocv.Mat
	if minDim := min(h, w); minDim < 60 {
		scale := 60.0 / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(region, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = region.Clone()
	}

	gray := gocv.NewMat()
	if scaled.Channels() == 1 {
		scaled.CopyTo(&gray)
	} else {
		gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	}
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{8, 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	// Paper dominates the strip; flip if the threshold left it dark.
	if white := gocv.CountNonZero(binary); float64(white) < 0.5*float64(binary.Rows()*binary.Cols()) {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}
