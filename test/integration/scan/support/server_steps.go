package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/codescan/internal/server"
)

func (testCtx *TestContext) startServer(cfg server.Config) error {
	if testCtx.HTTPServer != nil {
		return errors.New("server already running")
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.TimeoutSec == 0 {
		cfg.TimeoutSec = 30
	}
	testCtx.HTTPServer = httptest.NewServer(server.NewServer(cfg, testCtx.Scanner()).Handler())
	return nil
}

func (testCtx *TestContext) theScanServerIsRunning() error {
	return testCtx.startServer(server.Config{})
}

func (testCtx *TestContext) theScanServerIsRunningWithARateLimit(limit int) error {
	return testCtx.startServer(server.Config{RateLimitPerMinute: limit})
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) upload(path string, query url.Values) error {
	if testCtx.HTTPServer == nil {
		return errors.New("server is not running")
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "photo.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(testCtx.Photo); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	target := testCtx.HTTPServer.URL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodPost, target, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iUploadThePhotoTo(path string) error {
	return testCtx.upload(path, nil)
}

func (testCtx *TestContext) iUploadThePhotoWithParam(path, key, value string) error {
	return testCtx.upload(path, url.Values{key: []string{value}})
}

func (testCtx *TestContext) iUploadThePhotoTimes(path string, n int) error {
	for range n {
		if err := testCtx.upload(path, nil); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) iRequest(method, path string) error {
	if testCtx.HTTPServer == nil {
		return errors.New("server is not running")
	}
	req, err := http.NewRequest(method, testCtx.HTTPServer.URL+path, nil)
	if err != nil {
		return err
	}
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected HTTP status %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("expected response to contain %q, got: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != value {
		return fmt.Errorf("expected header %s=%q, got %q", name, value, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseCodesShouldBe(list string) error {
	var resp server.ScanResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("response is not a scan response: %w", err)
	}
	if !resp.Success || resp.Result == nil {
		return fmt.Errorf("scan was not successful: %s", resp.Error)
	}
	want := parseCodeList(list)
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(resp.Result.Codes, want) {
		return fmt.Errorf("expected codes %q, got %q", want, resp.Result.Codes)
	}
	return nil
}

// RegisterServerSteps registers HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scan server is running$`, testCtx.theScanServerIsRunning)
	sc.Step(`^the scan server is running with a rate limit of (\d+) requests per minute$`, testCtx.theScanServerIsRunningWithARateLimit)
	sc.Step(`^I upload the photo to "([^"]*)"$`, testCtx.iUploadThePhotoTo)
	sc.Step(`^I upload the photo to "([^"]*)" with "([^"]*)" set to "([^"]*)"$`, testCtx.iUploadThePhotoWithParam)
	sc.Step(`^I upload the photo to "([^"]*)" (\d+) times$`, testCtx.iUploadThePhotoTimes)
	sc.Step(`^I send a (GET|POST|PUT|DELETE|OPTIONS) request to "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response codes should be (.*)$`, testCtx.theResponseCodesShouldBe)
}
