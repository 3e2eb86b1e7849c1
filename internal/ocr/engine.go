// Package ocr implements the free-text fallback used when no symbol decodes:
// deskew, stroke closing, contrast boost, OCR and pattern extraction.
//
// Tesseract support requires cgo and the "tesseract" build tag:
//
//	go build -tags tesseract ./...
//
// Without the tag NewEngine returns ErrEngineUnavailable and the fallback
// contributes nothing.
package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrEngineUnavailable is returned when no OCR engine was compiled in.
var ErrEngineUnavailable = errors.New("ocr: engine not available; rebuild with -tags tesseract")

// Engine turns a raster into free text.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// EngineConfig configures the OCR engine.
type EngineConfig struct {
	// Language is a tesseract language code such as "eng".
	Language string
	// Whitelist optionally restricts recognized characters.
	Whitelist string
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{Language: "eng"}
}
