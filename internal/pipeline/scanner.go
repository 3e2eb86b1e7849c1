// Package pipeline turns photo bytes into an ordered list of identifier
// codes: preprocess, locate regions, decode every region and the whole frame
// across an angle sweep, fall back to OCR when nothing decodes, and
// aggregate.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/detector"
	"github.com/MeKo-Tech/codescan/internal/ocr"
	"github.com/MeKo-Tech/codescan/internal/utils"
)

// Scanner runs the detection and decoding chain. It holds no per-call state
// and is safe for concurrent use.
type Scanner struct {
	decoder  *barcode.RotatingDecoder
	backend  barcode.Backend
	fallback *ocr.Fallback
	opts     Options
	log      *slog.Logger
}

// NewScanner wires a symbol backend and an optional OCR engine. A nil engine
// or OCREnabled=false disables the OCR fallback.
func NewScanner(backend barcode.Backend, engine ocr.Engine, opts Options) *Scanner {
	if backend == nil {
		backend = barcode.NewBackend()
	}
	s := &Scanner{backend: backend, opts: opts, log: opts.logger()}
	if opts.OCREnabled && engine != nil {
		s.fallback = ocr.NewFallback(engine, opts.OCR)
	}
	s.decoder = barcode.NewRotatingDecoder(backend, opts.Sweep, opts.Decode)
	return s
}

// NewDefaultScanner builds a scanner with the gozxing backend and, when
// compiled in and enabled, the tesseract engine.
func NewDefaultScanner(opts Options) *Scanner {
	var engine ocr.Engine
	if opts.OCREnabled {
		e, err := ocr.NewEngine(opts.Engine)
		if err != nil {
			opts.logger().Warn("OCR fallback disabled", "error", err)
		} else {
			engine = e
		}
	}
	return NewScanner(barcode.NewBackend(), engine, opts)
}

// WithSweep returns a scanner sharing backend and engine but using sweep.
func (s *Scanner) WithSweep(sweep barcode.Sweep) *Scanner {
	c := *s
	c.opts.Sweep = sweep
	c.decoder = barcode.NewRotatingDecoder(s.backend, sweep, s.opts.Decode)
	return &c
}

// Options returns the scanner configuration.
func (s *Scanner) Options() Options { return s.opts }

// OCRAvailable reports whether the OCR fallback can run.
func (s *Scanner) OCRAvailable() bool { return s.fallback.Available() }

// AcceptAll matches every code. Pass it to Scan to disable filtering for
// one call when the scanner has a default pattern.
var AcceptAll = regexp.MustCompile(``)

// Scan decodes data and returns the accepted codes. A nil accept falls back
// to Options.AcceptPattern, so a nil argument cannot switch a configured
// default off; use AcceptAll for that. An empty result is not an error.
func (s *Scanner) Scan(ctx context.Context, data []byte, accept *regexp.Regexp) (ScanResult, error) {
	frame, err := Preprocess(data, s.opts.Preprocess)
	if err != nil {
		return ScanResult{}, err
	}
	return s.ScanFrame(ctx, frame, accept)
}

// ScanImage scans an already decoded image.
func (s *Scanner) ScanImage(ctx context.Context, img image.Image, accept *regexp.Regexp) (ScanResult, error) {
	if img == nil || img.Bounds().Empty() {
		return ScanResult{}, ErrInvalidImage
	}
	return s.ScanFrame(ctx, PreprocessImage(img, s.opts.Preprocess), accept)
}

// attempt is one (crop, angle) decode task.
type attempt struct {
	source Source
	crop   image.Image
	bounds image.Rectangle
	angle  float64
}

// ScanFrame runs location, decoding and fallback over a preprocessed frame.
func (s *Scanner) ScanFrame(ctx context.Context, frame *Frame, accept *regexp.Regexp) (ScanResult, error) {
	if accept == nil {
		accept = s.opts.AcceptPattern
	}
	start := time.Now()

	regions := detector.Locate(frame.Mask, s.opts.Locator)
	attempts := s.plan(frame, regions)

	results := make([][]barcode.Result, len(attempts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.workers())
	for i, a := range attempts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.decoder.Attempt(gctx, a.crop, a.angle)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ScanResult{}, err
	}

	// Decode candidates are merged in attempt order: regions left to right,
	// then the whole frame, each by ascending angle.
	decoded := make([]Candidate, 0, len(attempts))
	for i, a := range attempts {
		for _, r := range results[i] {
			decoded = append(decoded, Candidate{
				Code:   r.Value,
				Source: a.source,
				Angle:  r.Angle,
				Format: r.Format.String(),
				Region: boxFromRect(a.bounds),
			})
		}
	}

	agg := NewAggregator(accept)
	agg.Add(decoded...)

	ocrUsed := false
	if len(decoded) == 0 && s.fallback.Available() {
		ocrUsed = true
		s.log.Debug("No symbol decoded, running OCR fallback")
		if code, ok := s.fallback.Read(ctx, frame.Gray, frame.Mask); ok {
			agg.Add(Candidate{Code: code, Source: SourceOCR})
		}
	}

	res := agg.Result()
	res.Regions = len(regions)
	res.OCRUsed = ocrUsed

	s.log.Debug("Scan complete",
		"regions", len(regions),
		"attempts", len(attempts),
		"decoded", len(decoded),
		"codes", len(res.Codes),
		"ocr", ocrUsed,
		"duration", time.Since(start))
	return res, nil
}

func (s *Scanner) plan(frame *Frame, regions []detector.Region) []attempt {
	angles := s.opts.Sweep.Angles()
	out := make([]attempt, 0, (len(regions)+1)*len(angles))
	for _, r := range regions {
		crop := utils.Crop(frame.Color, r.Bounds, s.opts.RegionPadding)
		if crop.Bounds().Empty() {
			continue
		}
		for _, a := range angles {
			out = append(out, attempt{source: SourceRegion, crop: crop, bounds: r.Bounds, angle: a})
		}
	}
	for _, a := range angles {
		out = append(out, attempt{source: SourceWholeImage, crop: frame.Gray, bounds: frame.Gray.Bounds(), angle: a})
	}
	return out
}

// IsInvalidImage reports whether err marks undecodable input.
func IsInvalidImage(err error) bool { return errors.Is(err, ErrInvalidImage) }
