// Package ingest loads scanned contact sheets, cleans them up and records
// what each page says about itself.
package ingest

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var (
	// ErrNotFound is returned when the scan path does not exist.
	ErrNotFound = errors.New("scan path not found")
	// ErrUnsupportedFormat is returned for files that are not images or PDFs.
	ErrUnsupportedFormat = errors.New("unsupported scan format")
)

// SupportedFormats returns the accepted file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp", ".pdf"}
}

// IsSupportedFormat checks if the given path has a supported extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// listImages returns the image files directly inside dir in page order.
// PDFs inside a folder are ignored.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scan folder: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupportedFormat(entry.Name()) || isPDF(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	paths := make([]string, 0, len(names))
	for _, i := range OrderByFilename(names) {
		paths = append(paths, filepath.Join(dir, names[i]))
	}
	return paths, nil
}

// decodeFile reads an image and copies it into an RGBA buffer anchored at
// the origin.
func decodeFile(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
