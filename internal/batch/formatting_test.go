package batch

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

func sampleResult() *Result {
	return &Result{
		Files: []FileResult{
			{
				File:  "a.png",
				Codes: []string{"AZT1001", "AZT1003"},
				Candidates: []pipeline.Candidate{
					{Code: "AZT1001", Source: pipeline.SourceRegion, Angle: 0, Format: "code128", Region: &pipeline.Box{X: 1, Y: 2, W: 3, H: 4}},
					{Code: "AZT1003", Source: pipeline.SourceOCR},
				},
				Regions: 2,
				OCRUsed: true,
			},
			{File: "b.png", Codes: []string{}},
			{File: "c.png", Codes: []string{}, Error: "invalid image: bad header"},
		},
		Duration:    1500 * time.Millisecond,
		WorkerCount: 2,
	}
}

func TestFormatResults_Text(t *testing.T) {
	out, err := sampleResult().FormatResults("text", false)
	require.NoError(t, err)
	assert.Equal(t, "# a.png\nAZT1001\nAZT1003\n\n# b.png\n\n# c.png\nerror: invalid image: bad header\n", out)

	out, err = sampleResult().FormatResults("", true)
	require.NoError(t, err)
	assert.Contains(t, out, "AZT1001\tregion\t0\tcode128\n")
	assert.Contains(t, out, "AZT1003\tocr\t0\n")
}

func TestFormatResults_JSON(t *testing.T) {
	out, err := sampleResult().FormatResults("json", false)
	require.NoError(t, err)

	var doc struct {
		Files   []FileResult `json:"files"`
		Summary Stats        `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 3)
	assert.Equal(t, []string{"AZT1001", "AZT1003"}, doc.Files[0].Codes)
	assert.Empty(t, doc.Files[0].Candidates)
	assert.Equal(t, []string{}, doc.Files[1].Codes)
	assert.Equal(t, "invalid image: bad header", doc.Files[2].Error)
	assert.Equal(t, 3, doc.Summary.Total)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.Equal(t, 2, doc.Summary.UniqueCodes)
	assert.Equal(t, 1, doc.Summary.OCRUsed)

	detailed, err := sampleResult().FormatResults("json", true)
	require.NoError(t, err)
	assert.Contains(t, detailed, `"source": "ocr"`)
}

func TestFormatResults_CSV(t *testing.T) {
	out, err := sampleResult().FormatResults("csv", false)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"file,code,error",
		"a.png,AZT1001,",
		"a.png,AZT1003,",
		"b.png,,",
		"c.png,,invalid image: bad header",
	}, "\n")+"\n", out)

	out, err = sampleResult().FormatResults("csv", true)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "file,code,source,angle,format,x,y,w,h,error", lines[0])
	assert.Equal(t, "a.png,AZT1001,region,0,code128,1,2,3,4,", lines[1])
	assert.Equal(t, "a.png,AZT1003,ocr,0,,,,,,", lines[2])
	assert.Equal(t, "b.png,,,,,,,,,", lines[3])
}

func TestFormatResults_YAML(t *testing.T) {
	out, err := sampleResult().FormatResults("yaml", false)
	require.NoError(t, err)

	var doc struct {
		Files []FileResult `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 3)
	assert.Equal(t, "a.png", doc.Files[0].File)
	assert.Equal(t, []string{"AZT1001", "AZT1003"}, doc.Files[0].Codes)
}

func TestFormatResults_Unknown(t *testing.T) {
	_, err := sampleResult().FormatResults("xml", false)
	assert.Error(t, err)
}

func TestFormatResults_DoesNotMutate(t *testing.T) {
	res := sampleResult()
	_, err := res.FormatResults("json", false)
	require.NoError(t, err)
	assert.Len(t, res.Files[0].Candidates, 2)
}

func TestSaveResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().SaveResults(&buf, "text", "", false))
	assert.True(t, strings.HasPrefix(buf.String(), "# a.png\n"))

	path := filepath.Join(t.TempDir(), "out.csv")
	buf.Reset()
	require.NoError(t, sampleResult().SaveResults(&buf, "csv", path, false))
	assert.Empty(t, buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "file,code,error\n"))
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	sampleResult().PrintStats(&buf)
	out := buf.String()
	assert.Contains(t, out, "Total photos: 3")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Unique codes: 2")
	assert.Contains(t, out, "Throughput: 2.0 photos/sec")
}
