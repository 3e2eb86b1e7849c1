package pipeline

import (
	"image"
	"regexp"
	"strings"
)

// Source tags where a candidate came from.
type Source string

const (
	SourceRegion     Source = "region"
	SourceWholeImage Source = "whole-image"
	SourceOCR        Source = "ocr"
)

// Box is an axis-aligned rectangle in frame coordinates.
type Box struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

func boxFromRect(r image.Rectangle) *Box {
	if r.Empty() {
		return nil
	}
	return &Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Candidate is one decoded payload with its provenance.
type Candidate struct {
	Code   string  `json:"code" yaml:"code"`
	Source Source  `json:"source" yaml:"source"`
	Angle  float64 `json:"angle" yaml:"angle"`
	Format string  `json:"format,omitempty" yaml:"format,omitempty"`
	Region *Box    `json:"region,omitempty" yaml:"region,omitempty"`
}

// ScanResult is the ordered, duplicate-free outcome of one scan.
type ScanResult struct {
	Codes      []string    `json:"codes" yaml:"codes"`
	Candidates []Candidate `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Regions    int         `json:"regions" yaml:"regions"`
	OCRUsed    bool        `json:"ocr_used" yaml:"ocr_used"`
}

// Empty reports whether no code was accepted.
func (r ScanResult) Empty() bool { return len(r.Codes) == 0 }

// Aggregator merges candidates in priority order, keeping the first
// occurrence of each code and dropping codes rejected by the pattern.
type Aggregator struct {
	accept *regexp.Regexp
	seen   map[string]struct{}
	out    []Candidate
}

// NewAggregator creates an aggregator; a nil pattern accepts every code.
func NewAggregator(accept *regexp.Regexp) *Aggregator {
	return &Aggregator{accept: accept, seen: make(map[string]struct{})}
}

// Add merges candidates in the order given and reports how many were kept.
func (a *Aggregator) Add(cands ...Candidate) int {
	kept := 0
	for _, c := range cands {
		if strings.TrimSpace(c.Code) == "" {
			continue
		}
		if _, dup := a.seen[c.Code]; dup {
			continue
		}
		if a.accept != nil && !a.accept.MatchString(c.Code) {
			continue
		}
		a.seen[c.Code] = struct{}{}
		a.out = append(a.out, c)
		kept++
	}
	return kept
}

// Result returns the accumulated scan result.
func (a *Aggregator) Result() ScanResult {
	res := ScanResult{Codes: make([]string, 0, len(a.out))}
	for _, c := range a.out {
		res.Codes = append(res.Codes, c.Code)
	}
	res.Candidates = append([]Candidate(nil), a.out...)
	return res
}

// AcceptManual normalises a hand-typed code and checks it against the
// acceptance pattern. It returns the normalised code and whether it passes.
func AcceptManual(code string, pattern *regexp.Regexp) (string, bool) {
	norm := strings.ToUpper(strings.TrimSpace(code))
	if norm == "" {
		return "", false
	}
	if pattern != nil && !pattern.MatchString(norm) {
		return norm, false
	}
	return norm, true
}
