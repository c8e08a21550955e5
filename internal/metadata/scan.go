package metadata

import (
	"fmt"
	"image"
	"log/slog"

	"riso-reel/internal/cvutil"
	"riso-reel/internal/logging"

	"gocv.io/x/gocv"
)

// Corner names a page corner.
type Corner int

const (
	BottomRight Corner = iota
	BottomLeft
	TopRight
	TopLeft
)

var cornerNames = map[Corner]string{
	BottomRight: "bottom-right",
	BottomLeft:  "bottom-left",
	TopRight:    "top-right",
	TopLeft:     "top-left",
}

func (c Corner) String() string {
	if name, ok := cornerNames[c]; ok {
		return name
	}
	return fmt.Sprintf("corner(%d)", int(c))
}

// ParseCorner converts a config name such as "bottom-right" to a Corner.
func ParseCorner(name string) (Corner, error) {
	for c, n := range cornerNames {
		if n == name {
			return c, nil
		}
	}
	return BottomRight, fmt.Errorf("unknown corner %q", name)
}

// Variant is the preprocessing applied before a decode attempt.
type Variant int

const (
	VariantRaw Variant = iota
	VariantGray
	VariantOtsu
	VariantAdaptive
)

func (v Variant) String() string {
	switch v {
	case VariantRaw:
		return "raw"
	case VariantGray:
		return "grayscale"
	case VariantOtsu:
		return "otsu"
	case VariantAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Attempt is one step of the marker search.
type Attempt struct {
	Name    string
	Region  image.Rectangle
	Variant Variant
}

// ScanPlan returns the ordered marker search for a page of the given size.
// Corner squares of a third of the short side come first, the marker's own
// corner leading, each tried at native colour then grayscale. The whole page
// follows under raw, grayscale, Otsu and adaptive preprocessing.
func ScanPlan(width, height int, first Corner) []Attempt {
	order := []Corner{first}
	for _, c := range []Corner{BottomRight, BottomLeft, TopRight, TopLeft} {
		if c != first {
			order = append(order, c)
		}
	}

	var plan []Attempt
	size := min(width, height) / 3
	if size > 0 {
		for _, c := range order {
			region := cornerRegion(c, width, height, size)
			plan = append(plan,
				Attempt{Name: c.String(), Region: region, Variant: VariantRaw},
				Attempt{Name: c.String(), Region: region, Variant: VariantGray},
			)
		}
	}

	full := image.Rect(0, 0, width, height)
	for _, v := range []Variant{VariantRaw, VariantGray, VariantOtsu, VariantAdaptive} {
		plan = append(plan, Attempt{Name: "full", Region: full, Variant: v})
	}
	return plan
}

func cornerRegion(c Corner, width, height, size int) image.Rectangle {
	switch c {
	case BottomLeft:
		return image.Rect(0, height-size, size, height)
	case TopRight:
		return image.Rect(width-size, 0, width, size)
	case TopLeft:
		return image.Rect(0, 0, size, size)
	default:
		return image.Rect(width-size, height-size, width, height)
	}
}

// Detector locates and decodes a marker payload in a prepared image.
type Detector interface {
	Detect(img gocv.Mat) (string, bool)
}

// QRDetector wraps OpenCV's QR code detector.
type QRDetector struct {
	det gocv.QRCodeDetector
}

// NewQRDetector creates a QR detector. Call Close when done.
func NewQRDetector() *QRDetector {
	return &QRDetector{det: gocv.NewQRCodeDetector()}
}

// Detect returns the decoded QR payload, if any.
func (q *QRDetector) Detect(img gocv.Mat) (string, bool) {
	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	text := q.det.DetectAndDecode(img, &points, &straight)
	return text, text != ""
}

// Close releases the detector.
func (q *QRDetector) Close() error {
	return q.det.Close()
}

// Scanner runs the marker search plan over page images.
type Scanner struct {
	detector Detector
	first    Corner
	logger   *slog.Logger
}

// NewScanner creates a scanner. first is the corner the marker is printed in.
func NewScanner(detector Detector, first Corner, logger *slog.Logger) *Scanner {
	return &Scanner{
		detector: detector,
		first:    first,
		logger:   logging.NewComponentLogger(logger, "metadata"),
	}
}

// Scan searches a page for a marker and decodes it. A payload that is found
// but does not parse does not stop the search.
func (s *Scanner) Scan(img image.Image) (SheetMetadata, bool) {
	mat, err := cvutil.ImageToMat(img)
	if err != nil {
		s.logger.Debug("marker scan skipped", logging.Error(err))
		return SheetMetadata{}, false
	}
	defer mat.Close()
	return s.ScanMat(mat)
}

// ScanMat is Scan for an already converted BGR mat.
func (s *Scanner) ScanMat(mat gocv.Mat) (SheetMetadata, bool) {
	for _, attempt := range ScanPlan(mat.Cols(), mat.Rows(), s.first) {
		payload, found := s.try(mat, attempt)
		if !found {
			continue
		}
		m, ok := Parse(payload)
		if !ok {
			s.logger.Debug("marker payload did not parse",
				logging.String("attempt", attempt.Name),
				logging.String("variant", attempt.Variant.String()),
				logging.String("payload", payload))
			continue
		}
		s.logger.Debug("marker decoded",
			logging.String("attempt", attempt.Name),
			logging.String("variant", attempt.Variant.String()),
			logging.String("payload", payload))
		return m, true
	}
	return SheetMetadata{}, false
}

func (s *Scanner) try(mat gocv.Mat, attempt Attempt) (string, bool) {
	region := mat.Region(attempt.Region)
	defer region.Close()

	prepared := prepare(region, attempt.Variant)
	defer prepared.Close()

	return s.detector.Detect(prepared)
}

// prepare returns a new mat; the caller closes it.
func prepare(src gocv.Mat, variant Variant) gocv.Mat {
	if variant == VariantRaw {
		return src.Clone()
	}

	gray := cvutil.ToGray(src)
	switch variant {
	case VariantOtsu:
		defer gray.Close()
		binary := gocv.NewMat()
		gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
		return binary
	case VariantAdaptive:
		defer gray.Close()
		binary := gocv.NewMat()
		gocv.AdaptiveThreshold(gray, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 11, 2)
		return binary
	default:
		return gray
	}
}
