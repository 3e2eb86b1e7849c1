package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/version"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var errNoImage = errors.New("no image file provided")

// healthHandler reports liveness, build version and a host snapshot.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		System:  systemStats(r.Context()),
	}
	if s.scanner != nil {
		response.OCRAvailable = s.scanner.OCRAvailable()
	}
	s.writeJSON(w, http.StatusOK, response)
}

// systemStats samples host memory and CPU. Sampling failures leave the
// corresponding fields zero.
func systemStats(ctx context.Context) *SystemStats {
	stats := &SystemStats{CPUCount: runtime.NumCPU()}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		stats.CPUCount = n
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemTotalBytes = vm.Total
		stats.MemUsedPercent = vm.UsedPercent
	}
	return stats
}

// scanHandler decodes identifiers from an uploaded photo.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		scanRequestsTotal.WithLabelValues("http", "error").Inc()
		return // error already written
	}

	scanner, accept, err := s.requestScanner(r)
	if err != nil {
		scanRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := scanner.Scan(ctx, data, accept)
	if err != nil {
		scanRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeScanError(w, err)
		return
	}
	observeScan("http", res, time.Since(start))

	format := requestParam(r, "format")
	details := parseBool(requestParam(r, "details"))
	if format == "" || strings.EqualFold(format, pipeline.FormatJSON) {
		if !details {
			res.Candidates = nil
		}
		if res.Codes == nil {
			res.Codes = []string{}
		}
		s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: &res})
		return
	}

	body, err := pipeline.RenderResult(res, format, details)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeBody(w, format, body)
}

// qualityHandler returns sharpness and brightness of an uploaded photo.
func (s *Server) qualityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		return
	}

	q, err := pipeline.Quality(data)
	if err != nil {
		s.writeScanError(w, err)
		return
	}

	format := requestParam(r, "format")
	if format == "" || strings.EqualFold(format, pipeline.FormatJSON) {
		s.writeJSON(w, http.StatusOK, QualityResponse{Success: true, Result: &q})
		return
	}
	body, err := pipeline.RenderQuality(q, format)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeBody(w, format, body)
}

// readUpload reads the multipart "image" field within the upload limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
			return nil, err
		}
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, errNoImage
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, err
	}
	return data, nil
}

// requestScanner applies per-request overrides: "pattern" replaces the
// acceptance pattern, "sweep" and "step" select the angle sweep.
func (s *Server) requestScanner(r *http.Request) (*pipeline.Scanner, *regexp.Regexp, error) {
	scanner := s.scanner

	var accept *regexp.Regexp
	if p := requestParam(r, "pattern"); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid pattern: %w", err)
		}
		accept = re
	}

	if name := requestParam(r, "sweep"); name != "" {
		step := float64(barcode.DefaultFineStep)
		if raw := requestParam(r, "step"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < 1 || v > 90 {
				return nil, nil, fmt.Errorf("invalid step %q (must be between 1 and 90)", raw)
			}
			step = v
		}
		sweep, err := barcode.ParseSweep(name, step)
		if err != nil {
			return nil, nil, err
		}
		scanner = scanner.WithSweep(sweep)
	}
	return scanner, accept, nil
}

func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	switch {
	case pipeline.IsInvalidImage(err):
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, "Scan timed out", http.StatusGatewayTimeout)
	default:
		slog.Error("Scan failed", "error", err)
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), http.StatusInternalServerError)
	}
}

func observeScan(transport string, res pipeline.ScanResult, d time.Duration) {
	scanRequestsTotal.WithLabelValues(transport, "success").Inc()
	scanDuration.WithLabelValues(transport).Observe(d.Seconds())
	scanCodesFound.Observe(float64(len(res.Codes)))
	scanRegionsLocated.Observe(float64(res.Regions))
	if res.OCRUsed {
		ocrFallbackTotal.Inc()
	}
}

// requestParam reads a parameter from the form first, then the query.
func requestParam(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func writeBody(w http.ResponseWriter, format, body string) {
	switch strings.ToLower(format) {
	case pipeline.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case pipeline.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ScanResponse{Success: false, Error: message})
}
