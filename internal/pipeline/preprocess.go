package pipeline

import (
	"image"
	"log/slog"

	"github.com/MeKo-Tech/codescan/internal/detector"
	"github.com/MeKo-Tech/codescan/internal/utils"
)

// ErrInvalidImage is returned when the input bytes are not a decodable raster.
var ErrInvalidImage = utils.ErrInvalidImage

// Frame is one decoded photo with its derived views. All views share the
// same zero-based coordinate space.
type Frame struct {
	Meta utils.ImageMetadata
	// Color is the exposure-corrected frame; regions are cropped from it.
	Color *image.NRGBA
	// Gray is the grayscale view of Color.
	Gray *image.Gray
	// Mask is the inverted Otsu binarisation of the blurred Gray view.
	Mask *detector.Mask
	// MeanLuminance is measured before exposure correction.
	MeanLuminance float64
	Brightened    bool
}

// Preprocess decodes raw bytes and derives the rasters used by later stages.
func Preprocess(data []byte, cfg PreprocessConfig) (*Frame, error) {
	img, meta, err := utils.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	f := PreprocessImage(img, cfg)
	f.Meta = meta
	return f, nil
}

// PreprocessImage derives the working rasters from an already decoded image.
func PreprocessImage(img image.Image, cfg PreprocessConfig) *Frame {
	color := utils.ToNRGBA(img)
	gray := utils.ToGray(color)
	mean := utils.MeanLuminance(gray)

	f := &Frame{MeanLuminance: mean}
	if mean < cfg.BrightnessThreshold {
		color = utils.ApplyGainBias(color, cfg.Gain, cfg.Bias)
		gray = utils.ToGray(color)
		f.Brightened = true
		slog.Debug("Applied brightness correction", "mean", mean, "gain", cfg.Gain, "bias", cfg.Bias)
	}
	f.Color = color
	f.Gray = gray

	blurred := gray
	if cfg.BlurSigma > 0 {
		blurred = utils.GaussianBlur(gray, cfg.BlurSigma)
	}
	f.Mask = detector.MaskFromGray(blurred)
	return f
}
