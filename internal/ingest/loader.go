package ingest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"riso-reel/internal/config"
	"riso-reel/internal/cvutil"
	"riso-reel/internal/extract"
	"riso-reel/internal/logging"
	"riso-reel/internal/metadata"
	"riso-reel/internal/ocr"
	"riso-reel/internal/scancache"
)

// commandRunner executes an external tool.
type commandRunner func(ctx context.Context, name string, args ...string) error

// Options controls loading and cleanup.
type Options struct {
	AutoRotate      bool
	AutoCrop        bool
	WhiteBalance    bool
	Crop            CropParams
	WhitePercentile float64
	// DetectCorners looks for registration marks on every page.
	DetectCorners bool
	PDFDPI        int
	PDFTool       string
}

// DefaultOptions returns the built-in ingest settings.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Ingest)
}

// OptionsFromConfig maps the [ingest] config section.
func OptionsFromConfig(c config.Ingest) Options {
	return Options{
		AutoRotate:   c.AutoRotate,
		AutoCrop:     c.AutoCrop,
		WhiteBalance: c.WhiteBalance,
		Crop: CropParams{
			Threshold: c.CropThreshold,
			Ratio:     c.CropRatio,
			Margin:    c.CropMargin,
			MaxLoss:   c.MaxCropLoss,
		},
		WhitePercentile: c.WhitePercentile,
		PDFDPI:          c.PDFDPI,
		PDFTool:         c.PDFTool,
	}
}

// Page is one loaded, preprocessed scan page.
type Page struct {
	// Index is the page's position in load order.
	Index    int
	Name     string
	Path     string
	Image    *image.RGBA
	Findings Findings
}

// Loader turns a scan path into pages.
type Loader struct {
	opts    Options
	markers MarkerScanner
	labels  LabelReader
	cache   Cache
	run     commandRunner
	logger  *slog.Logger
}

// NewLoader creates a loader that preprocesses pages but looks for nothing
// on them until a marker scanner or label reader is attached.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	return &Loader{
		opts:   opts,
		run:    defaultCommandRunner,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}
}

// WithMarkerScanner enables the metadata marker search.
func (l *Loader) WithMarkerScanner(s MarkerScanner) {
	l.markers = s
}

// WithLabelReader enables the page-label fallback for pages without a marker.
func (l *Loader) WithLabelReader(r LabelReader) {
	l.labels = r
}

// WithCache enables the findings cache.
func (l *Loader) WithCache(c Cache) {
	l.cache = c
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (l *Loader) WithCommandRunner(r commandRunner) {
	if r != nil {
		l.run = r
	}
}

// Load reads a single image, a folder of images or a PDF. Unreadable files
// inside a folder are skipped with a warning; any other failure is returned.
func (l *Loader) Load(ctx context.Context, path string) ([]Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat scan path: %w", err)
	}

	switch {
	case info.IsDir():
		files, err := listImages(path)
		if err != nil {
			return nil, err
		}
		return l.loadFiles(ctx, files, filepath.Base, true)
	case isPDF(path):
		return l.loadPDF(ctx, path)
	case IsSupportedFormat(path):
		return l.loadFiles(ctx, []string{path}, filepath.Base, false)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (l *Loader) loadPDF(ctx context.Context, path string) ([]Page, error) {
	dir, err := os.MkdirTemp("", "riso-reel-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create raster dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-r", strconv.Itoa(l.opts.PDFDPI), "-png", path, filepath.Join(dir, "page")}
	l.logger.Debug("rasterizing pdf",
		logging.String("path", path),
		logging.String("tool", l.opts.PDFTool),
		logging.Int("dpi", l.opts.PDFDPI))
	if err := l.run(ctx, l.opts.PDFTool, args...); err != nil {
		return nil, fmt.Errorf("rasterize %s: %w", filepath.Base(path), err)
	}

	files, err := listImages(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("rasterize %s: no pages produced", filepath.Base(path))
	}

	n := 0
	name := func(string) string {
		n++
		return fmt.Sprintf("page_%d.png", n)
	}
	return l.loadFiles(ctx, files, name, false)
}

func (l *Loader) loadFiles(ctx context.Context, files []string, name func(string) string, skipBad bool) ([]Page, error) {
	pages := make([]Page, 0, len(files))
	for _, file := range files {
		pageName := name(file)
		img, findings, err := l.loadPage(ctx, file)
		if err != nil {
			if skipBad {
				l.logger.Warn("skipping unreadable scan",
					logging.String("file", pageName),
					logging.Error(err))
				continue
			}
			return nil, fmt.Errorf("load %s: %w", pageName, err)
		}
		pages = append(pages, Page{
			Index:    len(pages),
			Name:     pageName,
			Path:     file,
			Image:    img,
			Findings: findings,
		})
	}
	l.logger.Info("scans loaded", logging.Int("pages", len(pages)))
	return pages, nil
}

// loadPage decodes and cleans one file and gathers its findings. Pages whose
// marker declares an exact layout are not auto-cropped, since that layout is
// measured from the paper edge.
func (l *Loader) loadPage(ctx context.Context, path string) (*image.RGBA, Findings, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, Findings{}, err
	}

	if l.opts.AutoRotate {
		if rotated, err := ApplyOrientation(img, Orientation(path)); err == nil {
			img = rotated
		} else {
			l.logger.Debug("exif rotation skipped", logging.Error(err))
		}
	}

	key := l.key(path)
	findings, cached := l.lookup(ctx, key)

	meta := findings.Metadata
	if !cached {
		meta = l.scanMarker(img)
	}

	if l.opts.AutoCrop && (meta == nil || !meta.HasExactLayout()) {
		if cropped, ok := AutoCrop(img, l.opts.Crop); ok {
			l.logger.Debug("scanner border cropped",
				logging.String("file", filepath.Base(path)),
				logging.Int("width", cropped.Rect.Dx()),
				logging.Int("height", cropped.Rect.Dy()))
			img = cropped
			if !cached && meta == nil {
				meta = l.scanMarker(img)
			}
		}
	}

	if l.opts.WhiteBalance {
		img = WhiteBalance(img, l.opts.WhitePercentile)
	}

	if cached {
		return img, findings, nil
	}

	findings = Findings{Metadata: meta}
	if l.opts.DetectCorners {
		if corners, ok := extract.DetectCornerMarkers(img); ok {
			findings.Corners = &corners
		}
	}
	if meta == nil && l.labels != nil {
		findings.Label = l.readLabel(img)
	}
	l.store(ctx, key, path, findings)
	return img, findings, nil
}

func (l *Loader) scanMarker(img *image.RGBA) *metadata.SheetMetadata {
	if l.markers == nil {
		return nil
	}
	mat, err := cvutil.ImageToMat(img)
	if err != nil {
		return nil
	}
	defer mat.Close()
	if m, ok := l.markers.ScanMat(mat); ok {
		return &m
	}
	return nil
}

func (l *Loader) readLabel(img *image.RGBA) *ocr.Label {
	mat, err := cvutil.ImageToMat(img)
	if err != nil {
		return nil
	}
	defer mat.Close()
	if label, ok := l.labels.PageLabel(mat); ok {
		return &label
	}
	return nil
}

// key returns the cache key for a file, or "" when caching is off or the
// file cannot be hashed.
func (l *Loader) key(path string) string {
	if l.cache == nil {
		return ""
	}
	hash, err := scancache.HashFile(path)
	if err != nil {
		l.logger.Debug("findings cache skipped", logging.Error(err))
		return ""
	}
	return cacheKey(hash, l.opts, l.labels != nil)
}

func (l *Loader) lookup(ctx context.Context, key string) (Findings, bool) {
	if key == "" {
		return Findings{}, false
	}
	payload, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warn("findings cache read failed", logging.Error(err))
		return Findings{}, false
	}
	if !ok {
		return Findings{}, false
	}
	findings, err := decodeFindings(payload)
	if err != nil {
		l.logger.Warn("ignoring corrupt cache entry", logging.Error(err))
		return Findings{}, false
	}
	return findings, true
}

func (l *Loader) store(ctx context.Context, key, path string, f Findings) {
	if key == "" {
		return
	}
	payload, err := encodeFindings(f)
	if err != nil {
		return
	}
	if err := l.cache.Put(ctx, key, path, payload); err != nil {
		l.logger.Warn("findings cache write failed", logging.Error(err))
	}
}

// defaultCommandRunner executes external commands.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
