package assemble

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func frames(n, w, h int) []*image.RGBA {
	out := make([]*image.RGBA, n)
	for i := range out {
		out[i] = solid(w, h, color.RGBA{R: uint8(i * 10), G: 80, B: 160, A: 255})
		draw.Draw(out[i], image.Rect(w/2, h/2, w, h), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	return out
}

func testSettings() Settings {
	s := DefaultSettings()
	s.FPS = 24
	s.FrameDuration = 0
	s.Upscale = 1
	return s
}

func TestInfoDuration(t *testing.T) {
	a := New(testSettings(), nil)
	a.AddFrames(frames(48, 16, 12)...)

	info := a.Info()
	assert.Equal(t, 48, info.FrameCount)
	assert.InDelta(t, 2.0, info.Duration, 1e-9)
	assert.Equal(t, "00:02.00", info.DurationFormatted)
	assert.Equal(t, 16, info.Width)
	assert.Equal(t, 12, info.Height)
}

func TestInfoWithFrameDuration(t *testing.T) {
	s := testSettings()
	s.FrameDuration = 1.5
	s.Upscale = 2
	a := New(s, nil)
	a.AddFrames(frames(50, 16, 12)...)

	info := a.Info()
	assert.InDelta(t, 75.0, info.Duration, 1e-9)
	assert.Equal(t, "01:15.00", info.DurationFormatted)
	assert.Equal(t, 32, info.Width)
	assert.Equal(t, 24, info.Height)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00.00", FormatDuration(0))
	assert.Equal(t, "00:09.50", FormatDuration(9.5))
	assert.Equal(t, "02:05.25", FormatDuration(125.25))
}

func TestRepeatCount(t *testing.T) {
	tests := []struct {
		fps, duration float64
		want          int
	}{
		{fps: 24, duration: 0, want: 1},
		{fps: 24, duration: 0.5, want: 12},
		{fps: 24, duration: 0.01, want: 1},
		{fps: 10, duration: 0.25, want: 3},
		{fps: 12, duration: 2, want: 24},
	}
	for _, tt := range tests {
		s := Settings{FPS: tt.fps, FrameDuration: tt.duration}
		assert.Equal(t, tt.want, s.RepeatCount(), "fps=%v duration=%v", tt.fps, tt.duration)
	}
}

func TestGIFDelay(t *testing.T) {
	assert.Equal(t, 4, Settings{FPS: 24}.GIFDelay())
	assert.Equal(t, 50, Settings{FPS: 24, FrameDuration: 0.5}.GIFDelay())
	assert.Equal(t, 1, Settings{FPS: 1000}.GIFDelay())
}

func TestCodec(t *testing.T) {
	assert.Equal(t, "mp4v", Codec("out.mp4"))
	assert.Equal(t, "mp4v", Codec("out.MOV"))
	assert.Equal(t, "mp4v", Codec("out.mkv"))
	assert.Equal(t, "XVID", Codec("clip.avi"))
	assert.Equal(t, "mp4v", Codec("clip.webm"))
}

func TestValidate(t *testing.T) {
	s := testSettings()
	require.NoError(t, s.Validate())

	bad := s
	bad.Upscale = 5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidUpscale)
	bad.Upscale = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidUpscale)

	bad = s
	bad.FPS = 0
	assert.Error(t, bad.Validate())

	bad = s
	bad.Resolution = &Resolution{Width: 0, Height: 10}
	assert.Error(t, bad.Validate())
}

func TestExportWithoutFrames(t *testing.T) {
	dir := t.TempDir()
	a := New(testSettings(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, a.ExportVideo(ctx, filepath.Join(dir, "out.mp4"), ""), ErrNoFrames)
	assert.ErrorIs(t, a.ExportGIF(ctx, filepath.Join(dir, "out.gif")), ErrNoFrames)
	_, err := a.ExportSequence(ctx, filepath.Join(dir, "seq"))
	assert.ErrorIs(t, err, ErrNoFrames)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportRejectsBadUpscale(t *testing.T) {
	s := testSettings()
	s.Upscale = 8
	a := New(s, nil)
	a.AddFrames(frames(2, 4, 4)...)
	err := a.ExportGIF(context.Background(), filepath.Join(t.TempDir(), "out.gif"))
	assert.ErrorIs(t, err, ErrInvalidUpscale)
}

func TestAssemblePages(t *testing.T) {
	a := New(testSettings(), nil)
	three, one := 3, 1
	a.AddPage(frames(2, 4, 4), &three)
	a.AddPage(frames(3, 4, 4), &one)

	missing := a.AssemblePages()
	assert.Equal(t, []int{2}, missing)
	assert.Equal(t, 5, a.FrameCount())

	a.Clear()
	assert.Equal(t, 0, a.FrameCount())
	assert.Equal(t, 0, a.Pages().PageCount())
}

func TestPreview(t *testing.T) {
	a := New(testSettings(), nil)
	a.AddFrames(solid(400, 200, color.RGBA{A: 255}), solid(50, 40, color.RGBA{A: 255}))

	p, ok := a.Preview(0, 100, 100)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 100, 50), p.Bounds())

	p, ok = a.Preview(1, 100, 100)
	require.True(t, ok)
	assert.Same(t, a.Frames()[1], p)

	_, ok = a.Preview(2, 100, 100)
	assert.False(t, ok)
	_, ok = a.Preview(-1, 100, 100)
	assert.False(t, ok)
}

func TestExportSequence(t *testing.T) {
	s := testSettings()
	s.Prefix = "shot"
	s.StartNumber = 1
	a := New(s, nil)
	a.AddFrames(frames(9, 6, 4)...)

	dir := filepath.Join(t.TempDir(), "seq")
	paths, err := a.ExportSequence(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, paths, 9)
	// 9 frames from 1 pads to len("10") digits.
	assert.Equal(t, filepath.Join(dir, "shot_01.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "shot_09.png"), paths[8])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 9, "no temporary files left behind")

	f, err := os.Open(paths[3])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 4), img.Bounds())
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(30), r>>8)
}

func TestSequenceName(t *testing.T) {
	assert.Equal(t, "frame_0001.png", SequenceName("frame", 1, 4))
	assert.Equal(t, "frame_100.png", SequenceName("frame", 100, 3))
	assert.Equal(t, "x_5.png", SequenceName("x", 5, 1))
}

func TestExportSequenceUpscaleAndMixedSizes(t *testing.T) {
	s := testSettings()
	s.Upscale = 2
	a := New(s, nil)
	a.AddFrames(solid(8, 6, color.RGBA{R: 255, A: 255}), solid(4, 6, color.RGBA{G: 255, A: 255}))

	paths, err := a.ExportSequence(context.Background(), t.TempDir())
	require.NoError(t, err)
	for _, p := range paths {
		f, err := os.Open(p)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 16, cfg.Width)
		assert.Equal(t, 12, cfg.Height)
	}
}

func TestExportGIF(t *testing.T) {
	s := testSettings()
	s.FrameDuration = 0.5
	s.Loop = 3
	a := New(s, nil)
	a.AddFrames(frames(4, 10, 8)...)

	path := filepath.Join(t.TempDir(), "out", "anim.gif")
	require.NoError(t, a.ExportGIF(context.Background(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 4)
	assert.Equal(t, []int{50, 50, 50, 50}, anim.Delay)
	assert.Equal(t, 3, anim.LoopCount)
	assert.Equal(t, image.Rect(0, 0, 10, 8), anim.Image[0].Bounds())
}

func TestExportVideo(t *testing.T) {
	a := New(testSettings(), nil)
	a.AddFrames(frames(6, 64, 48)...)

	path := filepath.Join(t.TempDir(), "out.avi")
	err := a.ExportVideo(context.Background(), path, "")
	if err != nil && strings.Contains(err.Error(), "open video writer") {
		t.Skipf("video encoding unavailable: %v", err)
	}
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestMuxAudioArgsAndReplace(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "out.mp4")
	audio := filepath.Join(dir, "track.wav")
	require.NoError(t, os.WriteFile(video, []byte("silent"), 0o644))
	require.NoError(t, os.WriteFile(audio, []byte("wav"), 0o644))

	a := New(testSettings(), nil)
	var gotName string
	var gotArgs []string
	a.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return os.WriteFile(args[len(args)-1], []byte("with audio"), 0o644)
	})

	require.True(t, a.muxAudio(context.Background(), video, audio))
	assert.Equal(t, "ffmpeg", gotName)
	assert.Equal(t, []string{"-y", "-i", video, "-i", audio, "-c:v", "copy", "-c:a", "aac", "-shortest"}, gotArgs[:10])
	assert.Equal(t, ".mp4", filepath.Ext(gotArgs[10]))

	data, err := os.ReadFile(video)
	require.NoError(t, err)
	assert.Equal(t, "with audio", string(data))
}

func TestMuxAudioFailuresKeepVideo(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "out.mp4")
	audio := filepath.Join(dir, "track.wav")
	require.NoError(t, os.WriteFile(video, []byte("silent"), 0o644))
	require.NoError(t, os.WriteFile(audio, []byte("wav"), 0o644))

	tests := []struct {
		name string
		err  error
	}{
		{name: "tool missing", err: fmt.Errorf("%w: ", exec.ErrNotFound)},
		{name: "tool failed", err: errors.New("exit status 1: invalid data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(testSettings(), nil)
			a.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
				_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
				return tt.err
			})
			assert.False(t, a.muxAudio(context.Background(), video, audio))

			data, err := os.ReadFile(video)
			require.NoError(t, err)
			assert.Equal(t, "silent", string(data))
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}

	a := New(testSettings(), nil)
	calls := 0
	a.WithCommandRunner(func(context.Context, string, ...string) error { calls++; return nil })
	assert.False(t, a.muxAudio(context.Background(), video, filepath.Join(dir, "missing.wav")))
	assert.Equal(t, 0, calls)
}
