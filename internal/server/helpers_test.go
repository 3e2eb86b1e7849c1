package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/testutil"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	opts := pipeline.DefaultOptions()
	opts.OCREnabled = false
	opts.Workers = 4
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.TimeoutSec == 0 {
		cfg.TimeoutSec = 30
	}
	return NewServer(cfg, pipeline.NewScanner(barcode.NewBackend(), nil, opts))
}

// labelPNG renders one Code 128 label on a white canvas.
func labelPNG(code string) []byte {
	frame := testutil.Canvas(420, 180)
	testutil.Paste(frame, testutil.MustCode128(code, 2, 70), 50, 50)
	return testutil.PNG(frame)
}

func twoLabelPNG(a, b string) []byte {
	return testutil.PNG(testutil.SideBySide(70, 40,
		testutil.MustCode128(a, 2, 70),
		testutil.MustCode128(b, 2, 70),
	))
}

func blankPNG() []byte {
	return testutil.PNG(testutil.Canvas(200, 120))
}

// uploadRequest builds a multipart POST with the image under field "image"
// plus extra form fields.
func uploadRequest(t *testing.T, target string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if data != nil {
		part, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
