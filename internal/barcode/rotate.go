package barcode

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate turns img counter-clockwise by deg degrees about its center. The
// canvas grows to hold the whole rotated image, and uncovered corners
// replicate the nearest source edge pixel. Quarter turns are lossless;
// other angles use Catmull-Rom (bicubic) interpolation.
func Rotate(img image.Image, deg float64) *image.NRGBA {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	switch {
	case nearly(a, 0), nearly(a, 360):
		return imaging.Clone(img)
	case nearly(a, 90):
		return imaging.Rotate90(img)
	case nearly(a, 180):
		return imaging.Rotate180(img)
	case nearly(a, 270):
		return imaging.Rotate270(img)
	}

	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return src
	}

	rad := a * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	dw := int(math.Ceil(math.Abs(float64(w)*cos)+math.Abs(float64(h)*sin)-1e-6))
	dh := int(math.Ceil(math.Abs(float64(w)*sin)+math.Abs(float64(h)*cos)-1e-6))
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))

	csx, csy := float64(w)/2, float64(h)/2
	cdx, cdy := float64(dw)/2, float64(dh)/2

	// Border replication: nearest clamped source pixel for every destination
	// pixel. The interpolating pass below overwrites everything that maps
	// inside the source.
	for y := 0; y < dh; y++ {
		ry := float64(y) + 0.5 - cdy
		for x := 0; x < dw; x++ {
			rx := float64(x) + 0.5 - cdx
			sx := clamp(int(math.Floor(cos*rx-sin*ry+csx)), 0, w-1)
			sy := clamp(int(math.Floor(sin*rx+cos*ry+csy)), 0, h-1)
			si := sy*src.Stride + sx*4
			di := y*dst.Stride + x*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}

	s2d := f64.Aff3{
		cos, sin, cdx - cos*csx - sin*csy,
		-sin, cos, cdy + sin*csx - cos*csy,
	}
	draw.CatmullRom.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return dst
}

func nearly(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
