package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riso-reel/internal/assemble"
	"riso-reel/internal/config"
	"riso-reel/internal/ingest"
	"riso-reel/internal/metadata"
	"riso-reel/internal/ocr"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scan.Cache = false
	cfg.Ingest.AutoCrop = false
	return &cfg
}

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// writeSheet draws a white page with rows x cols dark thumbnails.
func writeSheet(t *testing.T, path string, rows, cols int) {
	t.Helper()
	page := image.NewRGBA(image.Rect(0, 0, 300, 400))
	draw.Draw(page, page.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x, y := 20+c*70, 20+r*60
			shade := color.RGBA{R: uint8(30 + 20*r), G: uint8(30 + 20*c), B: 60, A: 255}
			draw.Draw(page, image.Rect(x, y, x+60, y+50), image.NewUniform(shade), image.Point{}, draw.Src)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, page))
}

func scanDir(t *testing.T, pages int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scans")
	require.NoError(t, os.Mkdir(dir, 0o755))
	for i := 1; i <= pages; i++ {
		writeSheet(t, filepath.Join(dir, "scan_"+string(rune('0'+i))+".png"), 2, 3)
	}
	return dir
}

func ptr[T any](v T) *T { return &v }

func TestRequestValidate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	out := filepath.Join(dir, "out.mp4")

	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{name: "valid", req: Request{Source: src, Output: out}, ok: true},
		{name: "valid with grid", req: Request{Source: src, Output: out, Rows: 4, Cols: 6, FPS: ptr(12.0)}, ok: true},
		{name: "missing source path", req: Request{Output: out}},
		{name: "source does not exist", req: Request{Source: filepath.Join(dir, "nope"), Output: out}},
		{name: "missing output", req: Request{Source: src}},
		{name: "negative rows", req: Request{Source: src, Output: out, Rows: -1, Cols: 2}},
		{name: "rows without cols", req: Request{Source: src, Output: out, Rows: 3}},
		{name: "zero fps", req: Request{Source: src, Output: out, FPS: ptr(0.0)}},
		{name: "negative frame count", req: Request{Source: src, Output: out, FrameCount: ptr(-2)}},
		{name: "missing overrides file", req: Request{Source: src, Output: out, Overrides: filepath.Join(dir, "grid.json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	err := Request{Source: filepath.Join(dir, "nope"), Output: out}.Validate()
	assert.ErrorIs(t, err, ingest.ErrNotFound)
}

func TestFormatFor(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, FormatVideo, FormatFor(filepath.Join(dir, "out.mp4")))
	assert.Equal(t, FormatVideo, FormatFor(filepath.Join(dir, "out.avi")))
	assert.Equal(t, FormatGIF, FormatFor(filepath.Join(dir, "out.GIF")))
	assert.Equal(t, FormatSequence, FormatFor(filepath.Join(dir, "frames")))
	assert.Equal(t, FormatSequence, FormatFor(dir))
	assert.Equal(t, "sequence", FormatSequence.String())
}

func TestExportSettingsPrecedence(t *testing.T) {
	base := assemble.DefaultSettings()
	markers := &ingest.Settings{FPS: ptr(12.0)}

	assert.Equal(t, 24.0, Request{}.exportSettings(base, nil).FPS)
	assert.Equal(t, 12.0, Request{}.exportSettings(base, markers).FPS)
	assert.Equal(t, 30.0, Request{FPS: ptr(30.0)}.exportSettings(base, markers).FPS)
}

func TestHintsPreferMarker(t *testing.T) {
	req := Request{Rows: 2, Cols: 3, FrameCount: ptr(5)}
	h := req.hints(nil)
	assert.Equal(t, 2, h.Rows)
	assert.Equal(t, 5, *h.FrameCount)

	m := &metadata.SheetMetadata{PageNumber: 1, TotalPages: 1, Rows: 4, Cols: 6, FrameCount: 20}
	h = req.hints(m)
	assert.Equal(t, 4, h.Rows)
	assert.Equal(t, 6, h.Cols)
	assert.Equal(t, 20, *h.FrameCount)
}

func TestRunWithOverridesWritesSequence(t *testing.T) {
	src := scanDir(t, 2)
	overrides := filepath.Join(t.TempDir(), "grid.json")
	require.NoError(t, os.WriteFile(overrides, []byte(`[
		{"page_index": 0, "cells": [[20, 20, 60, 50], [90, 20, 60, 50]], "rows": 1, "cols": 2, "spacing": 10, "excluded_indices": [2]},
		{"page_index": 1, "cells": [[20, 20, 60, 50], [90, 20, 60, 50], [160, 20, 60, 50]], "rows": 1, "cols": 3, "spacing": 10, "excluded_indices": []}
	]`), 0o644))

	out := filepath.Join(t.TempDir(), "frames")
	var progress []int
	res, err := newPipeline(t).Run(context.Background(), Request{
		Source:    src,
		Output:    out,
		Overrides: overrides,
		Progress:  func(done, _ int) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Frames)
	assert.Equal(t, "sequence", res.Format)
	assert.Empty(t, res.Missing)
	assert.Equal(t, []int{1, 2}, progress)
	require.Len(t, res.Pages, 2)
	assert.Equal(t, "manual", res.Pages[0].Strategy)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Equal(t, 2, res.Pages[1].Number)
	assert.Equal(t, 3, res.Pages[1].Frames)

	require.Len(t, res.Outputs, 5)
	assert.Equal(t, filepath.Join(out, "frame_1.png"), res.Outputs[0])
	f, err := os.Open(res.Outputs[4])
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	assert.Equal(t, 5, res.Info.FrameCount)
	assert.InDelta(t, 5.0/24.0, res.Info.Duration, 1e-9)
}

func TestRunWithGridShapeWritesGIF(t *testing.T) {
	src := scanDir(t, 2)
	out := filepath.Join(t.TempDir(), "anim.gif")

	res, err := newPipeline(t).Run(context.Background(), Request{
		Source:     src,
		Output:     out,
		Rows:       2,
		Cols:       3,
		FrameCount: ptr(4),
		FPS:        ptr(10.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Frames)
	assert.Equal(t, "percentage", res.Pages[0].Strategy)
	assert.Equal(t, []string{out}, res.Outputs)
	assert.Equal(t, 10.0, res.Info.FPS)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 8)
	assert.Equal(t, 10, anim.Delay[0])
}

func TestRunWithoutFrames(t *testing.T) {
	src := scanDir(t, 1)
	overrides := filepath.Join(t.TempDir(), "grid.json")
	require.NoError(t, os.WriteFile(overrides, []byte(`[{"page_index": 0, "cells": [], "rows": 1, "cols": 1}]`), 0o644))
	out := filepath.Join(t.TempDir(), "out.gif")

	_, err := newPipeline(t).Run(context.Background(), Request{Source: src, Output: out, Overrides: overrides})
	assert.ErrorIs(t, err, ErrNoFramesExtracted)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunRejectsInvalidRequestBeforeLoading(t *testing.T) {
	_, err := newPipeline(t).Run(context.Background(), Request{Source: "/does/not/exist", Output: "out.mp4"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAddPageNumbering(t *testing.T) {
	p := newPipeline(t)
	asm := assemble.New(assemble.DefaultSettings(), nil)
	frame := []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 2, 2))}

	third := ingest.Page{Name: "a", Findings: ingest.Findings{Metadata: &metadata.SheetMetadata{PageNumber: 3}}}
	labelled := ingest.Page{Name: "b", Findings: ingest.Findings{Label: &ocr.Label{Page: 1, Total: 3}}}
	unnumbered := ingest.Page{Name: "c"}
	repeat := ingest.Page{Name: "d", Findings: ingest.Findings{Label: &ocr.Label{Page: 3, Total: 3}}}

	assert.Equal(t, 3, p.addPage(asm, third, frame))
	assert.Equal(t, 1, p.addPage(asm, labelled, frame))
	assert.Equal(t, 4, p.addPage(asm, unnumbered, frame))
	assert.Equal(t, 5, p.addPage(asm, repeat, frame))

	assert.Equal(t, []int{2}, asm.AssemblePages())
	assert.Equal(t, 4, asm.FrameCount())
}
