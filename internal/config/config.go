package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/detector"
	"github.com/MeKo-Tech/codescan/internal/ocr"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pre := pipeline.DefaultPreprocessConfig()
	loc := detector.DefaultConfig()
	fb := ocr.DefaultConfig()
	return Config{
		LogLevel: "info",
		Scan: ScanConfig{
			BrightnessThreshold: pre.BrightnessThreshold,
			BrightnessGain:      pre.Gain,
			BrightnessBias:      pre.Bias,
			BlurSigma:           pre.BlurSigma,
			MinRegionWidth:      loc.MinWidth,
			MinRegionHeight:     loc.MinHeight,
			CloseKernelWidth:    loc.CloseKernel.Width,
			CloseKernelHeight:   loc.CloseKernel.Height,
			OpenKernelWidth:     loc.OpenKernel.Width,
			OpenKernelHeight:    loc.OpenKernel.Height,
			RegionPadding:       8,
			AngleSweep:          barcode.SweepCoarse,
			FineStep:            barcode.DefaultFineStep,
			Formats:             []string{},
			MaxSymbols:          4,
		},
		OCR: OCRConfig{
			Enabled:     true,
			Language:    ocr.DefaultEngineConfig().Language,
			TextPattern: ocr.DefaultTextPattern,
			Contrast:    fb.Contrast,
			CloseKernel: fb.CloseKernel,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{
			Workers:         4,
			Include:         []string{},
			Exclude:         []string{},
			ContinueOnError: true,
		},
		Output: OutputConfig{
			Format: pipeline.FormatText,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(pipeline.OutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(pipeline.OutputFormats, ", "))
	}
	if err := c.Scan.validate(); err != nil {
		return err
	}
	if err := c.OCR.validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid rate limit: %d (must not be negative)", c.Server.RateLimitPerMinute)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

func (s *ScanConfig) validate() error {
	if s.BrightnessThreshold < 0 || s.BrightnessThreshold > 255 {
		return fmt.Errorf("invalid scan.brightness_threshold: %.1f (must be between 0 and 255)", s.BrightnessThreshold)
	}
	if s.BrightnessGain <= 0 {
		return fmt.Errorf("invalid scan.brightness_gain: %.2f (must be positive)", s.BrightnessGain)
	}
	if s.BlurSigma < 0 {
		return fmt.Errorf("invalid scan.blur_sigma: %.2f (must not be negative)", s.BlurSigma)
	}
	kernels := []struct {
		name string
		v    int
	}{
		{"scan.close_kernel_width", s.CloseKernelWidth},
		{"scan.close_kernel_height", s.CloseKernelHeight},
		{"scan.open_kernel_width", s.OpenKernelWidth},
		{"scan.open_kernel_height", s.OpenKernelHeight},
	}
	for _, k := range kernels {
		if k.v <= 0 {
			return fmt.Errorf("invalid %s: %d (must be positive)", k.name, k.v)
		}
	}
	if s.MinRegionWidth < 0 || s.MinRegionHeight < 0 {
		return fmt.Errorf("invalid minimum region size %dx%d (must not be negative)", s.MinRegionWidth, s.MinRegionHeight)
	}
	if s.RegionPadding < 0 {
		return fmt.Errorf("invalid scan.region_padding: %d (must not be negative)", s.RegionPadding)
	}
	if _, err := barcode.ParseSweep(s.AngleSweep, s.FineStep); err != nil {
		return err
	}
	if s.FineStep < 1 || s.FineStep > 90 {
		return fmt.Errorf("invalid scan.fine_step: %g (must be between 1 and 90)", s.FineStep)
	}
	if s.Workers < 0 {
		return fmt.Errorf("invalid scan.workers: %d (must not be negative)", s.Workers)
	}
	if s.MaxSymbols < 0 || s.MaxSymbols > 8 {
		return fmt.Errorf("invalid scan.max_symbols: %d (must be between 0 and 8)", s.MaxSymbols)
	}
	if _, err := barcode.ParseFormats(s.Formats); err != nil {
		return err
	}
	if _, err := compileOptional(s.AcceptPattern); err != nil {
		return fmt.Errorf("invalid scan.accept_pattern: %w", err)
	}
	return nil
}

func (o *OCRConfig) validate() error {
	if o.TextPattern == "" {
		return errors.New("invalid ocr.text_pattern: must not be empty")
	}
	if _, err := regexp.Compile(o.TextPattern); err != nil {
		return fmt.Errorf("invalid ocr.text_pattern: %w", err)
	}
	if o.Contrast <= 0 {
		return fmt.Errorf("invalid ocr.contrast: %.2f (must be positive)", o.Contrast)
	}
	if o.CloseKernel < 0 {
		return fmt.Errorf("invalid ocr.close_kernel: %d (must not be negative)", o.CloseKernel)
	}
	return nil
}

// AcceptRegexp compiles the acceptance pattern; an empty pattern yields nil.
func (c *Config) AcceptRegexp() (*regexp.Regexp, error) {
	return compileOptional(c.Scan.AcceptPattern)
}

// ToScannerOptions converts the config into pipeline scanner options.
func (c *Config) ToScannerOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	opts.Preprocess = pipeline.PreprocessConfig{
		BrightnessThreshold: c.Scan.BrightnessThreshold,
		Gain:                c.Scan.BrightnessGain,
		Bias:                c.Scan.BrightnessBias,
		BlurSigma:           c.Scan.BlurSigma,
	}
	opts.Locator = detector.Config{
		CloseKernel: detector.Kernel{Width: c.Scan.CloseKernelWidth, Height: c.Scan.CloseKernelHeight},
		OpenPass:    c.Scan.OpenPass,
		OpenKernel:  detector.Kernel{Width: c.Scan.OpenKernelWidth, Height: c.Scan.OpenKernelHeight},
		MinWidth:    c.Scan.MinRegionWidth,
		MinHeight:   c.Scan.MinRegionHeight,
	}
	opts.RegionPadding = c.Scan.RegionPadding
	opts.Workers = c.Scan.Workers

	sweep, err := barcode.ParseSweep(c.Scan.AngleSweep, c.Scan.FineStep)
	if err != nil {
		return opts, err
	}
	opts.Sweep = sweep

	formats, err := barcode.ParseFormats(c.Scan.Formats)
	if err != nil {
		return opts, err
	}
	opts.Decode.Formats = formats
	opts.Decode.MaxSymbols = c.Scan.MaxSymbols

	accept, err := c.AcceptRegexp()
	if err != nil {
		return opts, fmt.Errorf("invalid scan.accept_pattern: %w", err)
	}
	opts.AcceptPattern = accept

	textPattern, err := regexp.Compile(c.OCR.TextPattern)
	if err != nil {
		return opts, fmt.Errorf("invalid ocr.text_pattern: %w", err)
	}
	opts.OCREnabled = c.OCR.Enabled
	opts.OCR.Pattern = textPattern
	opts.OCR.Contrast = c.OCR.Contrast
	opts.OCR.CloseKernel = c.OCR.CloseKernel
	opts.Engine.Language = c.OCR.Language

	return opts, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}
