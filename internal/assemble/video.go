package assemble

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"riso-reel/internal/cvutil"
	"riso-reel/internal/logging"
)

// ExportVideo writes the frames to a video file. Each frame is written
// RepeatCount times at the configured fps. When audio is non-empty the track
// is muxed in afterwards on a best-effort basis.
func (a *Assembler) ExportVideo(ctx context.Context, path, audio string) error {
	frames, size, err := a.prepared()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	codec := Codec(path)
	repeat := a.settings.RepeatCount()
	tmp := tempSibling(path, "video")

	writer, err := gocv.VideoWriterFile(tmp, codec, a.settings.FPS, size.Width, size.Height, true)
	if err != nil {
		return fmt.Errorf("open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("open video writer: codec %s unavailable for %s", codec, filepath.Base(path))
	}

	a.logger.Info("writing video",
		logging.String("path", path),
		logging.String("codec", codec),
		logging.Int("frames", len(frames)),
		logging.Int("repeat", repeat),
		logging.Int("width", size.Width),
		logging.Int("height", size.Height))

	if err := writeFrames(ctx, writer, frames, repeat); err != nil {
		writer.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := writer.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize video: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	if audio != "" {
		a.muxAudio(ctx, path, audio)
	}
	return nil
}

func writeFrames(ctx context.Context, writer *gocv.VideoWriter, frames []*image.RGBA, repeat int) error {
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		mat, err := cvutil.ImageToMat(frame)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		for r := 0; r < repeat; r++ {
			if err := writer.Write(mat); err != nil {
				mat.Close()
				return fmt.Errorf("write frame %d: %w", i, err)
			}
		}
		mat.Close()
	}
	return nil
}
