// Package batch scans many photos with one shared scanner.
package batch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/utils"
)

// ErrNoFiles is returned when discovery yields nothing to scan.
var ErrNoFiles = errors.New("no image files found")

// Config holds batch settings.
type Config struct {
	Workers         int
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
	// ContinueOnError records per-file failures instead of aborting.
	ContinueOnError bool
	// Accept overrides the scanner's acceptance pattern when set.
	Accept   *regexp.Regexp
	Progress ProgressCallback
}

// FileResult is the outcome for one photo.
type FileResult struct {
	File       string               `json:"file" yaml:"file"`
	Codes      []string             `json:"codes" yaml:"codes"`
	Candidates []pipeline.Candidate `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Regions    int                  `json:"regions" yaml:"regions"`
	OCRUsed    bool                 `json:"ocr_used" yaml:"ocr_used"`
	Error      string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the file could not be scanned.
func (f FileResult) Failed() bool { return f.Error != "" }

// Result holds the outcome of a batch, in discovery order.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Stats summarises a batch.
type Stats struct {
	Total       int           `json:"total" yaml:"total"`
	Failed      int           `json:"failed" yaml:"failed"`
	WithCodes   int           `json:"with_codes" yaml:"with_codes"`
	UniqueCodes int           `json:"unique_codes" yaml:"unique_codes"`
	OCRUsed     int           `json:"ocr_used" yaml:"ocr_used"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Stats computes summary counters.
func (r *Result) Stats() Stats {
	st := Stats{Total: len(r.Files), Duration: r.Duration}
	seen := make(map[string]struct{})
	for _, f := range r.Files {
		if f.Failed() {
			st.Failed++
			continue
		}
		if len(f.Codes) > 0 {
			st.WithCodes++
		}
		if f.OCRUsed {
			st.OCRUsed++
		}
		for _, c := range f.Codes {
			seen[c] = struct{}{}
		}
	}
	st.UniqueCodes = len(seen)
	return st
}

// ProcessBatch discovers photos under paths and scans them in parallel.
func ProcessBatch(ctx context.Context, scanner *pipeline.Scanner, paths []string, cfg Config) (*Result, error) {
	files, err := DiscoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return ScanFiles(ctx, scanner, files, cfg)
}

// ScanFiles scans the given files with at most cfg.Workers in flight.
func ScanFiles(ctx context.Context, scanner *pipeline.Scanner, files []string, cfg Config) (*Result, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	progress := cfg.Progress
	if progress == nil {
		progress = noopProgress{}
	}

	results := make([]FileResult, len(files))
	var done atomic.Int64

	start := time.Now()
	progress.OnStart(len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr, err := scanFile(gctx, scanner, path, cfg.Accept)
			results[i] = fr
			progress.OnProgress(int(done.Add(1)), len(files))
			if err == nil {
				return nil
			}
			progress.OnError(path, err)
			if cfg.ContinueOnError && !isContextErr(err) {
				return nil
			}
			return fmt.Errorf("%s: %w", path, err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	progress.OnComplete()

	return &Result{Files: results, Duration: time.Since(start), WorkerCount: workers}, nil
}

func scanFile(ctx context.Context, scanner *pipeline.Scanner, path string, accept *regexp.Regexp) (FileResult, error) {
	fr := FileResult{File: path, Codes: []string{}}

	data, err := utils.ReadImageFile(path)
	if err != nil {
		fr.Error = err.Error()
		return fr, err
	}
	res, err := scanner.Scan(ctx, data, accept)
	if err != nil {
		fr.Error = err.Error()
		return fr, err
	}
	if res.Codes != nil {
		fr.Codes = res.Codes
	}
	fr.Candidates = res.Candidates
	fr.Regions = res.Regions
	fr.OCRUsed = res.OCRUsed
	return fr, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
