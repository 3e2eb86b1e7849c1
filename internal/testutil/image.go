package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas returns a white grayscale canvas.
func Canvas(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// Paste draws src onto dst with its top-left corner at (x, y).
func Paste(dst draw.Image, src image.Image, x, y int) {
	b := src.Bounds()
	draw.Draw(dst, image.Rect(x, y, x+b.Dx(), y+b.Dy()), src, b.Min, draw.Src)
}

// TextImage renders text in black on white using the 7x13 bitmap face,
// upscaled by an integer factor so it looks like a printed label.
func TextImage(text string, scale int) *image.Gray {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil() + 8
	h := face.Metrics().Height.Ceil() + 8
	img := Canvas(w, h)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(4, 4+face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(text)

	if scale <= 1 {
		return img
	}
	up := imaging.Resize(img, w*scale, h*scale, imaging.NearestNeighbor)
	gray := image.NewGray(up.Bounds())
	draw.Draw(gray, gray.Bounds(), up, image.Point{}, draw.Src)
	return gray
}

// RotateOnWhite rotates img counter-clockwise by angle degrees on an
// enlarged white canvas.
func RotateOnWhite(img image.Image, angle float64) *image.NRGBA {
	return imaging.Rotate(img, angle, color.White)
}

// Blur applies a Gaussian blur with the given sigma.
func Blur(img image.Image, sigma float64) *image.NRGBA {
	return imaging.Blur(img, sigma)
}

// Darken scales every channel by factor, simulating an under-exposed photo.
func Darken(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: uint8(float64(c.R) * factor),
			G: uint8(float64(c.G) * factor),
			B: uint8(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// Solid returns a uniformly colored RGBA frame.
func Solid(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// PNG encodes img as PNG bytes. It panics on encoder failure, which cannot
// happen for in-memory rasters.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG encodes img as JPEG bytes at high quality.
func JPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
