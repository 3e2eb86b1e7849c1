package utils

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ToNRGBA returns a copy of img as *image.NRGBA with bounds starting at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// ToGray converts an image to 8-bit grayscale using ITU-R 601 luma weights.
// The result always has bounds starting at (0,0).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	src := imaging.Clone(img)
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		si := y * src.Stride
		di := y * out.Stride
		for x := 0; x < b.Dx(); x++ {
			r := uint32(src.Pix[si])
			g := uint32(src.Pix[si+1])
			bl := uint32(src.Pix[si+2])
			// 19595 + 38470 + 7471 == 65536, same weights as color.GrayModel
			out.Pix[di+x] = uint8((19595*r + 38470*g + 7471*bl + 1<<15) >> 16)
			si += 4
		}
	}
	return out
}

// MeanLuminance returns the mean gray level (0..255) of a grayscale raster.
func MeanLuminance(g *image.Gray) float64 {
	b := g.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(n)
}

// ApplyGainBias applies out = clamp(gain*in + bias) to every color channel.
func ApplyGainBias(img image.Image, gain, bias float64) *image.NRGBA {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampUint8(gain*float64(i) + bias)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// GaussianBlur blurs a grayscale raster with the given sigma.
func GaussianBlur(g *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return g
	}
	return ToGray(imaging.Blur(g, sigma))
}

// OtsuThreshold computes the gray level maximizing between-class variance.
func OtsuThreshold(g *image.Gray) uint8 {
	b := g.Bounds()
	var hist [256]int
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i) * float64(c)
	}

	var (
		sumB    float64
		wB      int
		best    uint8
		maxBetw float64 = -1
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		betw := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if betw > maxBetw {
			maxBetw = betw
			best = uint8(t)
		}
	}
	return best
}

// Binarize thresholds g at t. A pixel is foreground when it is above t, or
// when it is at or below t if invert is set (dark marks on light paper).
func Binarize(g *image.Gray, t uint8, invert bool) []bool {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			fg := v > t
			if invert {
				fg = !fg
			}
			mask[y*w+x] = fg
		}
	}
	return mask
}

// LaplacianVariance returns the variance of the 4-neighbour Laplacian response.
// Higher values mean sharper images. Rasters smaller than 3x3 score 0.
func LaplacianVariance(g *image.Gray) float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	at := func(x, y int) float64 { return float64(g.Pix[y*g.Stride+x]) }

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			l := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += l
			sumSq += l * l
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// Crop returns the sub-image of img inside rect grown by pad pixels on each
// side, clamped to the image bounds.
func Crop(img image.Image, rect image.Rectangle, pad int) *image.NRGBA {
	b := img.Bounds()
	r := image.Rect(rect.Min.X-pad, rect.Min.Y-pad, rect.Max.X+pad, rect.Max.Y+pad).Intersect(b)
	if r.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Crop(img, r)
}

func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
