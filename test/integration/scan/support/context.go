package support

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/ocr"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	TempDir string

	// Photo under test
	Photo      []byte
	PhotoImage image.Image
	PhotoPath  string

	// Scanner configuration
	Options pipeline.Options
	OCR     *StubEngine

	// Scan state
	LastResult  pipeline.ScanResult
	LastQuality pipeline.QualityReport
	LastError   error

	rememberedSharpness float64

	// HTTP state
	HTTPServer         *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    http.Header
}

// StubEngine stands in for tesseract and returns a fixed transcript.
type StubEngine struct {
	Text  string
	calls atomic.Int32
}

// Recognize implements ocr.Engine.
func (e *StubEngine) Recognize(context.Context, image.Image) (string, error) {
	e.calls.Add(1)
	return e.Text, nil
}

// Calls returns how often the engine ran.
func (e *StubEngine) Calls() int { return int(e.calls.Load()) }

// NewTestContext creates a scenario context with default scanner options
// and OCR disabled.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "codescan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	opts := pipeline.DefaultOptions()
	opts.Workers = 4
	opts.OCREnabled = false
	return &TestContext{TempDir: tempDir, Options: opts}, nil
}

// Scanner builds a scanner from the current options.
func (testCtx *TestContext) Scanner() *pipeline.Scanner {
	var engine ocr.Engine
	if testCtx.OCR != nil {
		engine = testCtx.OCR
	}
	return pipeline.NewScanner(barcode.NewBackend(), engine, testCtx.Options)
}

// Cleanup stops the server and removes temporary files.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	if testCtx.TempDir != "" {
		if err := os.RemoveAll(testCtx.TempDir); err != nil {
			return fmt.Errorf("failed to remove temp dir %s: %w", testCtx.TempDir, err)
		}
	}
	return nil
}
