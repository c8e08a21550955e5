package ingest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"riso-reel/internal/metadata"
	"riso-reel/internal/ocr"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// sheetWithContent is a white page with a dark block in the middle that
// auto-crop trims to.
func sheetWithContent(w, h int) *image.RGBA {
	page := filled(w, h, color.White)
	draw.Draw(page, image.Rect(w/8, h/8, w-w/8, h-h/8), image.NewUniform(color.RGBA{R: 40, G: 40, B: 40, A: 255}), image.Point{}, draw.Src)
	return page
}

type fakeMarkers struct {
	meta  *metadata.SheetMetadata
	calls int
}

func (f *fakeMarkers) ScanMat(gocv.Mat) (metadata.SheetMetadata, bool) {
	f.calls++
	if f.meta == nil {
		return metadata.SheetMetadata{}, false
	}
	return *f.meta, true
}

type fakeLabels struct {
	label ocr.Label
	calls int
}

func (f *fakeLabels) PageLabel(gocv.Mat) (ocr.Label, bool) {
	f.calls++
	return f.label, true
}

type memoryCache struct {
	entries map[string][]byte
	puts    int
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key, _ string, payload []byte) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = payload
	m.puts++
	return nil
}

func noCropOptions() Options {
	opts := DefaultOptions()
	opts.AutoCrop = false
	return opts
}

func TestLoadFolderOrdersAndSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "scan_10.png"), filled(30, 20, color.White))
	writePNG(t, filepath.Join(dir, "scan_2.png"), filled(20, 20, color.White))
	writePNG(t, filepath.Join(dir, "scan_1.png"), filled(10, 20, color.White))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan_3.png"), []byte("not a png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	pages, err := NewLoader(noCropOptions(), nil).Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	var names []string
	for i, p := range pages {
		names = append(names, p.Name)
		assert.Equal(t, i, p.Index)
		assert.Equal(t, filepath.Join(dir, p.Name), p.Path)
	}
	assert.Equal(t, []string{"scan_1.png", "scan_2.png", "scan_10.png"}, names)
	assert.Equal(t, 10, pages[0].Image.Bounds().Dx())
	assert.Equal(t, 30, pages[2].Image.Bounds().Dx())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(noCropOptions(), nil)

	_, err := l.Load(context.Background(), filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, ErrNotFound)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = l.Load(context.Background(), txt)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
	_, err = l.Load(context.Background(), bad)
	assert.Error(t, err)
}

func TestLoadPDFRasterizesWithTool(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "sheets.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	opts := noCropOptions()
	opts.PDFDPI = 150
	l := NewLoader(opts, nil)

	var gotName string
	var gotArgs []string
	l.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		prefix := args[len(args)-1]
		writePNG(t, prefix+"-2.png", filled(20, 10, color.White))
		writePNG(t, prefix+"-1.png", filled(10, 10, color.White))
		return nil
	})

	pages, err := l.Load(context.Background(), pdf)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "pdftoppm", gotName)
	assert.Equal(t, []string{"-r", "150", "-png", pdf}, gotArgs[:4])
	assert.Equal(t, "page_1.png", pages[0].Name)
	assert.Equal(t, "page_2.png", pages[1].Name)
	assert.Equal(t, 10, pages[0].Image.Bounds().Dx())
	assert.Equal(t, 20, pages[1].Image.Bounds().Dx())

	// The raster directory is removed once pages are decoded.
	_, err = os.Stat(filepath.Dir(pages[0].Path))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadPDFToolFailure(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "sheets.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	l := NewLoader(noCropOptions(), nil)
	l.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exec: not found")
	})
	_, err := l.Load(context.Background(), pdf)
	assert.ErrorContains(t, err, "rasterize sheets.pdf")

	l.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	_, err = l.Load(context.Background(), pdf)
	assert.ErrorContains(t, err, "no pages produced")
}

func TestExactLayoutPagesAreNotCropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page1.png")
	writePNG(t, path, sheetWithContent(200, 200))

	markers := &fakeMarkers{meta: &metadata.SheetMetadata{
		PageNumber: 1, TotalPages: 1, Rows: 2, Cols: 2, FrameCount: 4,
		CellWidth: metadata.Ptr(50), CellHeight: metadata.Ptr(50),
		Margin: metadata.Ptr(40), Spacing: metadata.Ptr(20),
	}}
	l := NewLoader(DefaultOptions(), nil)
	l.WithMarkerScanner(markers)

	pages, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, image.Rect(0, 0, 200, 200), pages[0].Image.Bounds())
	assert.Equal(t, 1, markers.calls)
	require.NotNil(t, pages[0].Findings.Metadata)
	assert.Equal(t, 2, pages[0].Findings.Metadata.Rows)
}

func TestMissingMarkerIsRetriedAfterCrop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page1.png")
	writePNG(t, path, sheetWithContent(200, 200))

	markers := &fakeMarkers{}
	labels := &fakeLabels{label: ocr.Label{Page: 2, Total: 3}}
	l := NewLoader(DefaultOptions(), nil)
	l.WithMarkerScanner(markers)
	l.WithLabelReader(labels)

	pages, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Less(t, pages[0].Image.Bounds().Dx(), 200)
	assert.Equal(t, 2, markers.calls)
	assert.Equal(t, 1, labels.calls)

	f := pages[0].Findings
	assert.Nil(t, f.Metadata)
	require.NotNil(t, f.Label)
	n, ok := f.PageNumber()
	assert.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestLabelsSkippedWhenMarkerFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page1.png")
	writePNG(t, path, filled(50, 50, color.White))

	labels := &fakeLabels{}
	l := NewLoader(noCropOptions(), nil)
	l.WithMarkerScanner(&fakeMarkers{meta: &metadata.SheetMetadata{PageNumber: 3, TotalPages: 3, Rows: 1, Cols: 1}})
	l.WithLabelReader(labels)

	pages, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, labels.calls)
	n, ok := pages[0].Findings.PageNumber()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestFindingsAreCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page1.png")
	writePNG(t, path, filled(50, 50, color.White))

	cache := &memoryCache{}
	meta := &metadata.SheetMetadata{PageNumber: 1, TotalPages: 2, Rows: 3, Cols: 4, FrameCount: 11, FPS: metadata.Ptr(12.0)}

	first := &fakeMarkers{meta: meta}
	l := NewLoader(noCropOptions(), nil)
	l.WithMarkerScanner(first)
	l.WithCache(cache)
	_, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, cache.puts)

	second := &fakeMarkers{}
	l.WithMarkerScanner(second)
	pages, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, second.calls)
	assert.Equal(t, 1, cache.puts)
	require.NotNil(t, pages[0].Findings.Metadata)
	assert.Equal(t, *meta, *pages[0].Findings.Metadata)

	// Different options do not share entries.
	opts := noCropOptions()
	opts.WhiteBalance = true
	other := NewLoader(opts, nil)
	other.WithMarkerScanner(second)
	other.WithCache(cache)
	_, err = other.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 2, cache.puts)
}

func TestDetectCornersFinding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page1.png")
	page := filled(400, 500, color.White)
	black := image.NewUniform(color.Black)
	for _, o := range []image.Point{{10, 10}, {360, 10}, {10, 460}, {360, 460}} {
		draw.Draw(page, image.Rect(o.X, o.Y, o.X+30, o.Y+30), black, image.Point{}, draw.Src)
	}
	writePNG(t, path, page)

	opts := noCropOptions()
	opts.DetectCorners = true
	pages, err := NewLoader(opts, nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, pages[0].Findings.Corners)
	assert.Equal(t, 25.0, pages[0].Findings.Corners[0].X)
	assert.Equal(t, 475.0, pages[0].Findings.Corners[2].Y)
}

func TestOrientationWithoutExif(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")
	writePNG(t, path, filled(5, 5, color.White))
	assert.Equal(t, 1, Orientation(path))
	assert.Equal(t, 1, Orientation(filepath.Join(dir, "missing.jpg")))
}
