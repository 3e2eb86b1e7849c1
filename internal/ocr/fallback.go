package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"regexp"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/codescan/internal/detector"
	"github.com/MeKo-Tech/codescan/internal/utils"
)

// Config controls the OCR fallback stage.
type Config struct {
	// Pattern selects the code inside recognized text.
	Pattern *regexp.Regexp
	// Contrast is a multiplicative contrast factor; 1 leaves the image as is.
	Contrast float64
	// CloseKernel is the square kernel used to bridge broken strokes.
	CloseKernel int
	// DeskewKernel merges glyphs into one blob before skew estimation.
	DeskewKernel detector.Kernel
	// MinSkew and MaxSkew bound the skew (degrees) that triggers a rotation.
	MinSkew float64
	MaxSkew float64
}

// DefaultConfig returns the default fallback configuration.
func DefaultConfig() Config {
	return Config{
		Pattern:      regexp.MustCompile(DefaultTextPattern),
		Contrast:     2.0,
		CloseKernel:  3,
		DeskewKernel: detector.Kernel{Width: 15, Height: 5},
		MinSkew:      0.5,
		MaxSkew:      45,
	}
}

// Fallback reads a printed code when no symbol could be decoded.
type Fallback struct {
	engine Engine
	cfg    Config
}

// NewFallback binds an engine to a configuration. A nil engine yields a
// fallback that never produces a code.
func NewFallback(engine Engine, cfg Config) *Fallback {
	if cfg.Pattern == nil {
		cfg.Pattern = regexp.MustCompile(DefaultTextPattern)
	}
	return &Fallback{engine: engine, cfg: cfg}
}

// Available reports whether an engine is bound.
func (f *Fallback) Available() bool { return f != nil && f.engine != nil }

// Read prepares the frame and runs OCR. It returns the first pattern match
// and true, or "" and false. Engine failures degrade to no result.
func (f *Fallback) Read(ctx context.Context, gray *image.Gray, mask *detector.Mask) (string, bool) {
	if !f.Available() || gray == nil || gray.Bounds().Empty() {
		return "", false
	}

	prepared := f.Prepare(gray, mask)
	text, err := f.engine.Recognize(ctx, prepared)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", false
		}
		slog.Warn("OCR failed", "error", err)
		return "", false
	}

	code := ExtractCode(text, f.cfg.Pattern)
	slog.Debug("OCR fallback", "chars", len(text), "matched", code != "")
	return code, code != ""
}

// Prepare deskews, closes strokes and boosts contrast.
func (f *Fallback) Prepare(gray *image.Gray, mask *detector.Mask) *image.Gray {
	if mask == nil {
		mask = detector.MaskFromGray(gray)
	}
	img := gray
	if skew := EstimateSkew(mask, f.cfg.DeskewKernel); math.Abs(skew) >= f.cfg.MinSkew && math.Abs(skew) <= f.cfg.MaxSkew {
		img = Deskew(img, skew)
	}
	img = closeStrokes(img, f.cfg.CloseKernel)
	return boostContrast(img, f.cfg.Contrast)
}

// EstimateSkew returns the long-side angle of the minimum-area rectangle
// around the largest foreground blob, in degrees. Positive means the text
// line descends to the right. An empty mask yields 0.
func EstimateSkew(mask *detector.Mask, k detector.Kernel) float64 {
	contour := detector.LargestContour(mask, k)
	if len(contour) < 3 {
		return 0
	}
	return utils.SkewAngle(utils.MinimumAreaRectangle(contour))
}

// Deskew rotates g so that a line at skew degrees becomes horizontal.
// Corners exposed by the rotation are white.
func Deskew(g *image.Gray, skew float64) *image.Gray {
	rotated := transform.Rotate(g, -skew, &transform.RotationOptions{ResizeBounds: true})
	b := rotated.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), rotated, b.Min, draw.Over)
	return out
}

func boostContrast(g *image.Gray, factor float64) *image.Gray {
	if factor == 1 || factor <= 0 {
		return g
	}
	pct := math.Max(-100, math.Min(100, (factor-1)*100))
	return utils.ToGray(imaging.AdjustContrast(g, pct))
}
