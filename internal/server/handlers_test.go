package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HealthHandler(t *testing.T) {
	server := newTestServer(t, Config{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
		{"PUT request not allowed", http.MethodPut, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			server.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "healthy", response.Status)
			assert.NotEmpty(t, response.Time)
			assert.False(t, response.OCRAvailable)
			require.NotNil(t, response.System)
			assert.Positive(t, response.System.CPUCount)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestServer_ScanHandler_JSON(t *testing.T) {
	server := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	server.scanHandler(w, uploadRequest(t, "/scan", labelPNG("AZT1001"), nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, []string{"AZT1001"}, resp.Result.Codes)
	assert.Empty(t, resp.Result.Candidates)
}

func TestServer_ScanHandler_Details(t *testing.T) {
	server := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	req := uploadRequest(t, "/scan", labelPNG("AZT1001"), map[string]string{"details": "true"})
	server.scanHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Result.Candidates)
	assert.Equal(t, "AZT1001", resp.Result.Candidates[0].Code)
}

func TestServer_ScanHandler_Pattern(t *testing.T) {
	server := newTestServer(t, Config{})

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"no pattern keeps both", "", []string{"AZT1001", "AZT1002"}},
		{"pattern keeps one", `^AZT1002$`, []string{"AZT1002"}},
		{"pattern rejects all", `^XYZ`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]string{}
			if tt.pattern != "" {
				fields["pattern"] = tt.pattern
			}
			w := httptest.NewRecorder()
			server.scanHandler(w, uploadRequest(t, "/scan", twoLabelPNG("AZT1001", "AZT1002"), fields))

			require.Equal(t, http.StatusOK, w.Code)
			var resp ScanResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Result.Codes)
		})
	}
}

func TestServer_ScanHandler_Formats(t *testing.T) {
	server := newTestServer(t, Config{})

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"text", "text/plain; charset=utf-8", "AZT1001"},
		{"csv", "text/csv", "code\nAZT1001"},
		{"yaml", "application/yaml", "- AZT1001"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.scanHandler(w, uploadRequest(t, "/scan?format="+tt.format, labelPNG("AZT1001"), nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestServer_ScanHandler_Errors(t *testing.T) {
	server := newTestServer(t, Config{})

	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
		errMsg string
	}{
		{
			name:   "wrong method",
			req:    func(*testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/scan", nil) },
			status: http.StatusMethodNotAllowed,
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader("raw"))
			},
			status: http.StatusBadRequest,
			errMsg: "Failed to parse form data",
		},
		{
			name:   "missing image field",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "/scan", nil, map[string]string{"x": "y"}) },
			status: http.StatusBadRequest,
			errMsg: "No image file provided",
		},
		{
			name:   "undecodable bytes",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "/scan", []byte("not an image"), nil) },
			status: http.StatusBadRequest,
			errMsg: "Invalid image format",
		},
		{
			name: "bad pattern",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/scan", labelPNG("AZT1"), map[string]string{"pattern": "("})
			},
			status: http.StatusBadRequest,
			errMsg: "invalid pattern",
		},
		{
			name: "bad sweep",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/scan", labelPNG("AZT1"), map[string]string{"sweep": "spiral"})
			},
			status: http.StatusBadRequest,
			errMsg: "unknown angle sweep",
		},
		{
			name: "bad step",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/scan", labelPNG("AZT1"), map[string]string{"sweep": "fine", "step": "0"})
			},
			status: http.StatusBadRequest,
			errMsg: "invalid step",
		},
		{
			name: "unknown output format",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/scan?format=xml", labelPNG("AZT1"), nil)
			},
			status: http.StatusBadRequest,
			errMsg: "unsupported output format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.scanHandler(w, tt.req(t))

			assert.Equal(t, tt.status, w.Code)
			if tt.errMsg == "" {
				return
			}
			var resp ScanResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.errMsg)
		})
	}
}

func TestServer_ScanHandler_BlankImage(t *testing.T) {
	server := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	server.scanHandler(w, uploadRequest(t, "/scan", blankPNG(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{}, resp.Result.Codes)
}

func TestServer_ScanHandler_TooLarge(t *testing.T) {
	server := newTestServer(t, Config{MaxUploadMB: 1})

	big := bytes.Repeat([]byte{0xAB}, 2*1024*1024)
	w := httptest.NewRecorder()
	server.scanHandler(w, uploadRequest(t, "/scan", big, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_QualityHandler(t *testing.T) {
	server := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	server.qualityHandler(w, uploadRequest(t, "/quality", labelPNG("AZT1001"), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp QualityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Positive(t, resp.Result.Sharpness)
	assert.Greater(t, resp.Result.Brightness, 128.0)
	assert.Equal(t, 420, resp.Result.Width)
	assert.Equal(t, 180, resp.Result.Height)

	w = httptest.NewRecorder()
	server.qualityHandler(w, uploadRequest(t, "/quality?format=text", labelPNG("AZT1001"), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "sharpness: "))

	w = httptest.NewRecorder()
	server.qualityHandler(w, uploadRequest(t, "/quality", []byte("junk"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Routes(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, Config{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), "codescan_http_requests_total")
}
