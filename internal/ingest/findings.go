package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gocv.io/x/gocv"

	"riso-reel/internal/metadata"
	"riso-reel/internal/ocr"
	"riso-reel/pkg/geometry"
)

// Findings is what a page reveals about itself.
type Findings struct {
	// Metadata is the decoded marker, nil when none was found.
	Metadata *metadata.SheetMetadata `json:"metadata,omitempty"`
	// Corners are the registration marks ordered TL, TR, BR, BL.
	Corners *[4]geometry.Point2D `json:"corners,omitempty"`
	// Label is the printed page label, read only when the marker is missing.
	Label *ocr.Label `json:"label,omitempty"`
}

// PageNumber returns the page number declared by the marker, or by the
// printed label when there is no marker.
func (f Findings) PageNumber() (int, bool) {
	if f.Metadata != nil {
		return f.Metadata.PageNumber, true
	}
	if f.Label != nil {
		return f.Label.Page, true
	}
	return 0, false
}

// MarkerScanner searches a BGR page for the metadata marker.
type MarkerScanner interface {
	ScanMat(page gocv.Mat) (metadata.SheetMetadata, bool)
}

// LabelReader reads the printed page label from a BGR page.
type LabelReader interface {
	PageLabel(page gocv.Mat) (ocr.Label, bool)
}

// Cache stores findings between runs, keyed by file content.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key, path string, payload []byte) error
}

// cacheKey combines a file hash with everything that changes the findings
// for the same bytes.
func cacheKey(fileHash string, opts Options, labels bool) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%+v|labels=%t", opts, labels)))
	return fileHash + ":" + hex.EncodeToString(sum[:6])
}

func encodeFindings(f Findings) ([]byte, error) {
	return json.Marshal(f)
}

func decodeFindings(payload []byte) (Findings, error) {
	var f Findings
	if err := json.Unmarshal(payload, &f); err != nil {
		return Findings{}, fmt.Errorf("decode cached findings: %w", err)
	}
	return f, nil
}
