package pipeline

import (
	"log/slog"
	"regexp"
	"runtime"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/detector"
	"github.com/MeKo-Tech/codescan/internal/ocr"
)

// PreprocessConfig controls exposure correction, denoising and binarisation.
type PreprocessConfig struct {
	// Frames whose mean luminance (0..255) falls below BrightnessThreshold
	// are rescaled with Gain and Bias before further processing.
	BrightnessThreshold float64
	Gain                float64
	Bias                float64
	// BlurSigma is the Gaussian sigma applied before thresholding. Zero disables the blur.
	BlurSigma float64
}

// DefaultPreprocessConfig returns the default preprocessing settings.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		BrightnessThreshold: 60,
		Gain:                1.6,
		Bias:                30,
		BlurSigma:           0.8,
	}
}

// Options holds the complete configuration of a Scanner.
type Options struct {
	Preprocess PreprocessConfig
	Locator    detector.Config
	// RegionPadding grows every located box before cropping.
	RegionPadding int
	Sweep         barcode.Sweep
	Decode        barcode.Options
	// Workers bounds concurrent decode attempts; 0 means GOMAXPROCS.
	Workers int

	OCREnabled bool
	OCR        ocr.Config
	Engine     ocr.EngineConfig

	// AcceptPattern is the default acceptance pattern; nil accepts everything.
	AcceptPattern *regexp.Regexp

	Logger *slog.Logger
}

// DefaultOptions returns the default scanner configuration.
func DefaultOptions() Options {
	return Options{
		Preprocess:    DefaultPreprocessConfig(),
		Locator:       detector.DefaultConfig(),
		RegionPadding: 8,
		Sweep:         barcode.CoarseSweep(),
		Decode:        barcode.Options{TryHarder: true, MaxSymbols: 4},
		OCREnabled:    true,
		OCR:           ocr.DefaultConfig(),
		Engine:        ocr.DefaultEngineConfig(),
	}
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
