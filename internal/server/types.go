package server

import (
	"net/http"
	"time"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner     *pipeline.Scanner
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host               string
	Port               int
	CORSOrigin         string
	MaxUploadMB        int64
	TimeoutSec         int
	ShutdownTimeoutSec int
	// RateLimitPerMinute caps requests per client IP; zero disables limiting.
	RateLimitPerMinute int
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status       string       `json:"status"`
	Version      string       `json:"version,omitempty"`
	Time         string       `json:"time"`
	OCRAvailable bool         `json:"ocr_available"`
	System       *SystemStats `json:"system,omitempty"`
}

// SystemStats is a host snapshot included in health responses when available.
type SystemStats struct {
	CPUCount       int     `json:"cpu_count"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemTotalBytes  uint64  `json:"mem_total_bytes"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

// ScanResponse wraps a scan result for JSON clients.
type ScanResponse struct {
	Success bool                 `json:"success"`
	Result  *pipeline.ScanResult `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// QualityResponse wraps a quality report for JSON clients.
type QualityResponse struct {
	Success bool                    `json:"success"`
	Result  *pipeline.QualityReport `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// NewServer creates a server around a ready scanner.
func NewServer(config Config, scanner *pipeline.Scanner) *Server {
	s := &Server{
		scanner:     scanner,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 20
	}
	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = NewRateLimiter(config.RateLimitPerMinute, time.Minute)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.rateLimitMiddleware(s.scanHandler)))
	mux.HandleFunc("/quality", s.corsMiddleware(s.rateLimitMiddleware(s.qualityHandler)))
	mux.HandleFunc("/ws/scan", s.scanWebSocketHandler)
	mux.Handle("/metrics", metricsHandler())
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
