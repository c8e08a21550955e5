package assemble

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"riso-reel/internal/logging"
)

// SequenceName returns the file name of the n-th image in a sequence whose
// numbers are padded to width digits.
func SequenceName(prefix string, n, width int) string {
	return fmt.Sprintf("%s_%0*d.png", prefix, width, n)
}

// ExportSequence writes the frames as numbered PNG files in dir and returns
// their paths. Numbers start at StartNumber and are zero-padded to the width
// of the largest number plus one.
func (a *Assembler) ExportSequence(ctx context.Context, dir string) ([]string, error) {
	frames, _, err := a.prepared()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sequence directory: %w", err)
	}

	start := a.settings.StartNumber
	width := len(strconv.Itoa(len(frames) + start))
	paths := make([]string, 0, len(frames))
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, SequenceName(a.settings.Prefix, start+i, width))
		err := writeAtomic(path, func(w io.Writer) error {
			return png.Encode(w, frame)
		})
		if err != nil {
			return paths, fmt.Errorf("write frame %d: %w", i, err)
		}
		paths = append(paths, path)
	}

	a.logger.Info("image sequence written",
		logging.String("dir", dir),
		logging.Int("frames", len(paths)))
	return paths, nil
}
