package assemble

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"

	"github.com/ericpauley/go-quantize/quantize"

	"riso-reel/internal/logging"
)

// ExportGIF writes the frames as an animated GIF. Each frame gets its own
// median-cut palette and is Floyd-Steinberg dithered onto it.
func (a *Assembler) ExportGIF(ctx context.Context, path string) error {
	frames, size, err := a.prepared()
	if err != nil {
		return err
	}

	delay := a.settings.GIFDelay()
	anim := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(frames)),
		Delay:     make([]int, 0, len(frames)),
		LoopCount: a.settings.Loop,
		Config:    image.Config{Width: size.Width, Height: size.Height},
	}
	quantizer := quantize.MedianCutQuantizer{}
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		anim.Image = append(anim.Image, palettize(quantizer, frame))
		anim.Delay = append(anim.Delay, delay)
	}

	a.logger.Info("writing gif",
		logging.String("path", path),
		logging.Int("frames", len(frames)),
		logging.Int("delay_cs", delay),
		logging.Int("loop", a.settings.Loop))

	return writeAtomic(path, func(w io.Writer) error {
		if err := gif.EncodeAll(w, anim); err != nil {
			return fmt.Errorf("encode gif: %w", err)
		}
		return nil
	})
}

func palettize(q quantize.MedianCutQuantizer, frame image.Image) *image.Paletted {
	bounds := frame.Bounds()
	palette := q.Quantize(make(color.Palette, 0, 256), frame)
	if len(palette) == 0 {
		palette = color.Palette{color.Black}
	}
	out := image.NewPaletted(bounds, palette)
	draw.FloydSteinberg.Draw(out, bounds, frame, bounds.Min)
	return out
}
