package metadata_test

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"riso-reel/internal/metadata"
)

func TestScanPlanOrder(t *testing.T) {
	plan := metadata.ScanPlan(900, 1200, metadata.BottomRight)
	require.Len(t, plan, 12)

	// corners: 300px squares, marker corner first, native then grayscale
	assert.Equal(t, metadata.Attempt{Name: "bottom-right", Region: image.Rect(600, 900, 900, 1200), Variant: metadata.VariantRaw}, plan[0])
	assert.Equal(t, metadata.VariantGray, plan[1].Variant)
	assert.Equal(t, "bottom-left", plan[2].Name)
	assert.Equal(t, image.Rect(0, 900, 300, 1200), plan[2].Region)
	assert.Equal(t, "top-right", plan[4].Name)
	assert.Equal(t, "top-left", plan[6].Name)
	assert.Equal(t, image.Rect(0, 0, 300, 300), plan[6].Region)

	var tail []metadata.Variant
	for _, a := range plan[8:] {
		assert.Equal(t, "full", a.Name)
		assert.Equal(t, image.Rect(0, 0, 900, 1200), a.Region)
		tail = append(tail, a.Variant)
	}
	assert.Equal(t, []metadata.Variant{metadata.VariantRaw, metadata.VariantGray, metadata.VariantOtsu, metadata.VariantAdaptive}, tail)
}

func TestScanPlanMovesMarkerCornerFirst(t *testing.T) {
	plan := metadata.ScanPlan(300, 300, metadata.TopLeft)
	names := []string{plan[0].Name, plan[2].Name, plan[4].Name, plan[6].Name}
	assert.Equal(t, []string{"top-left", "bottom-right", "bottom-left", "top-right"}, names)
}

func TestScanPlanTinyImageSkipsCorners(t *testing.T) {
	plan := metadata.ScanPlan(2, 2, metadata.BottomRight)
	require.Len(t, plan, 4)
	assert.Equal(t, "full", plan[0].Name)
}

func TestParseCorner(t *testing.T) {
	c, err := metadata.ParseCorner("top-right")
	require.NoError(t, err)
	assert.Equal(t, metadata.TopRight, c)

	_, err = metadata.ParseCorner("centre")
	assert.Error(t, err)
}

// scriptedDetector answers from a fixed list of payloads, one per call.
type scriptedDetector struct {
	payloads []string
	calls    int
	channels []int
}

func (d *scriptedDetector) Detect(img gocv.Mat) (string, bool) {
	d.channels = append(d.channels, img.Channels())
	defer func() { d.calls++ }()
	if d.calls < len(d.payloads) && d.payloads[d.calls] != "" {
		return d.payloads[d.calls], true
	}
	return "", false
}

func whitePage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func TestScannerStopsOnFirstParsedPayload(t *testing.T) {
	det := &scriptedDetector{payloads: []string{"", "garbage", "", "p1/2|g2x2|f0+4"}}
	scanner := metadata.NewScanner(det, metadata.BottomRight, nil)

	m, ok := scanner.Scan(whitePage(90, 120))
	require.True(t, ok)
	assert.Equal(t, 4, m.FrameCount)
	assert.Equal(t, 4, det.calls, "unparseable payloads do not end the search")
	assert.Equal(t, []int{3, 1, 3, 1}, det.channels)
}

func TestScannerExhaustsPlan(t *testing.T) {
	det := &scriptedDetector{}
	scanner := metadata.NewScanner(det, metadata.BottomRight, nil)

	_, ok := scanner.Scan(whitePage(90, 120))
	assert.False(t, ok)
	assert.Equal(t, 12, det.calls)
	// thresholded variants are single channel
	assert.Equal(t, []int{3, 1, 1, 1}, det.channels[8:])
}

func TestVideoHash(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.mp4")
	require.NoError(t, os.WriteFile(small, []byte("tiny video"), 0o644))

	hash, err := metadata.VideoHash(small)
	require.NoError(t, err)
	assert.Len(t, hash, 12)

	again, err := metadata.VideoHash(small)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	large := filepath.Join(dir, "large.mp4")
	data := make([]byte, 200*1024)
	data[100*1024] = 1 // middle bytes are not hashed
	require.NoError(t, os.WriteFile(large, data, 0o644))
	h1, err := metadata.VideoHash(large)
	require.NoError(t, err)
	data[100*1024] = 2
	require.NoError(t, os.WriteFile(large, data, 0o644))
	h2, err := metadata.VideoHash(large)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	_, err = metadata.VideoHash(filepath.Join(dir, "missing.mp4"))
	assert.Error(t, err)
}
