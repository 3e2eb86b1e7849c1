//go:build !tesseract

package ocr

// NewEngine reports ErrEngineUnavailable in builds without tesseract.
func NewEngine(EngineConfig) (Engine, error) {
	return nil, ErrEngineUnavailable
}
