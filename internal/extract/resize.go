package extract

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"riso-reel/pkg/colorutil"
	"riso-reel/pkg/geometry"
)

// Resize scales a frame to width x height. With keepAspect the frame is fit
// inside that box instead, so one side may come out shorter.
func Resize(frame image.Image, width, height int, keepAspect bool) *image.RGBA {
	target := geometry.Size{Width: width, Height: height}
	if keepAspect {
		target = geometry.SizeOf(frame.Bounds()).Fit(target)
	}
	target.Width = max(target.Width, 1)
	target.Height = max(target.Height, 1)

	dst := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
	return dst
}

// Letterbox fits a frame inside width x height and centres it on black.
func Letterbox(frame image.Image, width, height int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(colorutil.Black), image.Point{}, xdraw.Src)

	fitted := Resize(frame, width, height, true)
	offset := image.Point{
		X: (width - fitted.Bounds().Dx()) / 2,
		Y: (height - fitted.Bounds().Dy()) / 2,
	}
	xdraw.Draw(canvas, fitted.Bounds().Add(offset), fitted, image.Point{}, xdraw.Src)
	return canvas
}

// Upscale enlarges a frame by an integer factor.
func Upscale(frame image.Image, factor int) *image.RGBA {
	b := frame.Bounds()
	return Resize(frame, b.Dx()*factor, b.Dy()*factor, false)
}
