package ocr

import (
	"image"

	"github.com/anthonynsimon/bild/effect"

	"github.com/MeKo-Tech/codescan/internal/utils"
)

// closeStrokes performs a grayscale closing of dark strokes with a kernel of
// roughly k pixels: a local minimum grows ink, a local maximum shrinks it back.
func closeStrokes(g *image.Gray, k int) *image.Gray {
	if k <= 1 {
		return g
	}
	radius := float64(k) / 2
	return utils.ToGray(effect.Dilate(effect.Erode(g, radius), radius))
}
