package detector

import (
	"image"

	"github.com/MeKo-Tech/codescan/internal/utils"
)

// Mask is a binary raster. True marks foreground (ink).
type Mask struct {
	W   int
	H   int
	Pix []bool
}

// NewMask allocates an empty mask.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Pix: make([]bool, w*h)}
}

// MaskFromGray thresholds a grayscale raster with Otsu's method and inverts
// the result so dark code markings become foreground.
func MaskFromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	t := utils.OtsuThreshold(g)
	return &Mask{W: b.Dx(), H: b.Dy(), Pix: utils.Binarize(g, t, true)}
}

// At reports whether (x, y) is foreground. Out-of-range coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x]
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := &Mask{W: m.W, H: m.H, Pix: make([]bool, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}
