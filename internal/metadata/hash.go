package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const hashChunk = 64 * 1024

// VideoHash returns the short identifier printed on sheets for a source
// video: the first 12 hex digits of sha256 over its first and last 64 KiB.
func VideoHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat video: %w", err)
	}

	h := sha256.New()
	if _, err := io.CopyN(h, f, hashChunk); err != nil && err != io.EOF {
		return "", fmt.Errorf("read video head: %w", err)
	}
	tail := max(info.Size()-hashChunk, 0)
	if _, err := f.Seek(tail, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek video tail: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read video tail: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:12], nil
}
