// Package benchmark measures scan latency and memory for photo sets.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/utils"
)

// Timer provides simple timing utilities for benchmarking.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	SysBytes        uint64
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
	}
}

// Result holds the outcome of one benchmark run.
type Result struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Error        error
}

// Average returns the mean duration per iteration.
func (r Result) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocatedKB is the total allocation during the run in KiB.
func (r Result) AllocatedKB() uint64 {
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / 1024
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc: %d KB",
		r.Name, r.Iterations, r.Average(), r.Duration, r.AllocatedKB())
}

// Benchmark is a named function measured by a Suite.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite creates an empty benchmark suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Run runs the named benchmark for the given number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return run(b, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs every benchmark in insertion order.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, run(b, iterations))
	}
	return s.results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func run(b Benchmark, iterations int) Result {
	runtime.GC()
	before := GetMemoryStats()
	timer := NewTimer(b.Name)

	var err error
	done := 0
	for range iterations {
		if err = b.Func(); err != nil {
			break
		}
		done++
	}

	return Result{
		Name:         b.Name,
		Duration:     timer.Stop(),
		MemoryBefore: before,
		MemoryAfter:  GetMemoryStats(),
		Iterations:   done,
		Error:        err,
	}
}

// SweepResult compares the coarse and fine sweeps on one photo.
type SweepResult struct {
	Photo       string
	Width       int
	Height      int
	Coarse      Result
	Fine        Result
	CoarseCodes []string
	FineCodes   []string
}

// Slowdown is the fine-sweep cost relative to the coarse sweep.
func (r SweepResult) Slowdown() float64 {
	c := r.Coarse.Average()
	if c == 0 {
		return 0
	}
	return float64(r.Fine.Average()) / float64(c)
}

func (r SweepResult) String() string {
	return fmt.Sprintf("%s (%dx%d): coarse %v [%d codes], fine %v [%d codes], %.1fx",
		filepath.Base(r.Photo), r.Width, r.Height,
		r.Coarse.Average(), len(r.CoarseCodes),
		r.Fine.Average(), len(r.FineCodes),
		r.Slowdown())
}

// SweepComparison runs each photo through scanners that differ only in
// their angle sweep.
type SweepComparison struct {
	coarse *pipeline.Scanner
	fine   *pipeline.Scanner
	photos []string
	log    io.Writer
}

// NewSweepComparison derives coarse and fine scanners from scanner.
func NewSweepComparison(scanner *pipeline.Scanner, fineStep float64, photos []string) *SweepComparison {
	return &SweepComparison{
		coarse: scanner.WithSweep(barcode.CoarseSweep()),
		fine:   scanner.WithSweep(barcode.FineSweep(fineStep)),
		photos: photos,
		log:    io.Discard,
	}
}

// WithLog directs per-photo progress lines to w.
func (c *SweepComparison) WithLog(w io.Writer) *SweepComparison {
	c.log = w
	return c
}

// Run benchmarks every photo. Photos that cannot be read or decoded are
// reported and skipped.
func (c *SweepComparison) Run(ctx context.Context, iterations int) []SweepResult {
	results := make([]SweepResult, 0, len(c.photos))
	for _, p := range c.photos {
		r, err := c.photo(ctx, p, iterations)
		if err != nil {
			_, _ = fmt.Fprintf(c.log, "  %s: %v\n", filepath.Base(p), err)
			continue
		}
		_, _ = fmt.Fprintf(c.log, "  %s\n", r)
		results = append(results, r)
	}
	return results
}

func (c *SweepComparison) photo(ctx context.Context, path string, iterations int) (SweepResult, error) {
	data, err := utils.ReadImageFile(path)
	if err != nil {
		return SweepResult{}, err
	}
	q, err := pipeline.Quality(data)
	if err != nil {
		return SweepResult{}, err
	}
	r := SweepResult{Photo: path, Width: q.Width, Height: q.Height}

	// Warm up both scanners and record what each finds.
	coarse, err := c.coarse.Scan(ctx, data, nil)
	if err != nil {
		return SweepResult{}, err
	}
	fine, err := c.fine.Scan(ctx, data, nil)
	if err != nil {
		return SweepResult{}, err
	}
	r.CoarseCodes, r.FineCodes = coarse.Codes, fine.Codes

	suite := NewSuite()
	suite.Add("coarse", func() error { _, err := c.coarse.Scan(ctx, data, nil); return err })
	suite.Add("fine", func() error { _, err := c.fine.Scan(ctx, data, nil); return err })
	r.Coarse = suite.Run("coarse", iterations)
	r.Fine = suite.Run("fine", iterations)
	return r, nil
}

// WriteCSV writes comparison results as CSV.
func WriteCSV(w io.Writer, results []SweepResult) error {
	if _, err := fmt.Fprintln(w, "photo,width,height,coarse_ms,fine_ms,coarse_codes,fine_codes,slowdown"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s,%d,%d,%.2f,%.2f,%d,%d,%.2f\n",
			filepath.Base(r.Photo), r.Width, r.Height,
			float64(r.Coarse.Average().Microseconds())/1000,
			float64(r.Fine.Average().Microseconds())/1000,
			len(r.CoarseCodes), len(r.FineCodes), r.Slowdown(),
		); err != nil {
			return err
		}
	}
	return nil
}
