package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrNotFound is returned by a Backend when no symbol could be decoded.
var ErrNotFound = errors.New("barcode: no symbol found")

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatPDF417
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

var formatNames = map[Format]string{
	FormatQR:         "qr",
	FormatDataMatrix: "datamatrix",
	FormatAztec:      "aztec",
	FormatPDF417:     "pdf417",
	FormatCode128:    "code128",
	FormatCode39:     "code39",
	FormatEAN8:       "ean8",
	FormatEAN13:      "ean13",
	FormatUPCA:       "upca",
	FormatUPCE:       "upce",
	FormatITF:        "itf",
	FormatCodabar:    "codabar",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// MarshalText renders the format by name in JSON and YAML output.
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// ParseFormat maps a user-facing symbology name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode":
		return FormatQR, nil
	case "datamatrix", "data-matrix":
		return FormatDataMatrix, nil
	case "aztec":
		return FormatAztec, nil
	case "pdf417":
		return FormatPDF417, nil
	case "code128", "code-128":
		return FormatCode128, nil
	case "code39", "code-39":
		return FormatCode39, nil
	case "ean8", "ean-8":
		return FormatEAN8, nil
	case "ean13", "ean-13":
		return FormatEAN13, nil
	case "upca", "upc-a":
		return FormatUPCA, nil
	case "upce", "upc-e":
		return FormatUPCE, nil
	case "itf", "interleaved2of5", "i2/5":
		return FormatITF, nil
	case "codabar":
		return FormatCodabar, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown barcode format %q", s)
	}
}

// ParseFormats parses a list of symbology names.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// MaxSymbols bounds how many symbols one Decode call may return.
	// Zero means a single symbol.
	MaxSymbols int
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded barcode.
type Result struct {
	Format Format
	Value  string
	Points []Point         // Corner or key points if available
	BBox   image.Rectangle // Bounding box if derivable from points
	// Angle is the rotation in degrees (counter-clockwise) applied to the
	// input before this symbol was decoded.
	Angle float64
}

// Backend is a pluggable barcode decoder implementation.
// Decode returns ErrNotFound when the image holds no readable symbol, and
// must be safe for concurrent use.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default backend implementation.
func NewBackend() Backend { return NewZXingBackend() }

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
