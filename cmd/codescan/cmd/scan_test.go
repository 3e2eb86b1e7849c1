package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/testutil"
)

func TestScanCommandText(t *testing.T) {
	path := writeLabel(t, t.TempDir(), "label.png", "AZT1001")

	out, _, err := executeCommand(t, "scan", "--no-ocr", path)
	require.NoError(t, err)
	assert.Equal(t, "AZT1001\n", out)
}

func TestScanCommandJSONDetails(t *testing.T) {
	path := writeLabel(t, t.TempDir(), "label.png", "AZT1001")

	out, _, err := executeCommand(t, "scan", "--no-ocr", "--format", "json", "--details", path)
	require.NoError(t, err)

	var res pipeline.ScanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"AZT1001"}, res.Codes)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, pipeline.SourceRegion, res.Candidates[0].Source)
	assert.False(t, res.OCRUsed)
}

func TestScanCommandPattern(t *testing.T) {
	path := writeLabel(t, t.TempDir(), "label.png", "AZT1001")

	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"matching", `^AZT\d+$`, "AZT1001\n"},
		{"rejecting", `^XYZ`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := executeCommand(t, "scan", "--no-ocr", "--pattern", tt.pattern, path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestScanCommandOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeLabel(t, dir, "label.png", "AZT1001")
	target := filepath.Join(dir, "codes.csv")

	out, _, err := executeCommand(t, "scan", "--no-ocr", "-f", "csv", "-o", target, path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "code\nAZT1001\n", string(data))
}

func TestScanCommandStdin(t *testing.T) {
	frame := testutil.Canvas(420, 180)
	testutil.Paste(frame, testutil.MustCode128("AZT1002", 2, 70), 50, 50)

	resetFlags(rootCmd)
	var stdout, stderr strings.Builder
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(string(testutil.PNG(frame))))
	rootCmd.SetArgs([]string{"scan", "--no-ocr", "-"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "AZT1002\n", stdout.String())
}

func TestScanCommandMultiplePhotos(t *testing.T) {
	dir := t.TempDir()
	a := writeLabel(t, dir, "a.png", "AZT1001")
	b := writeLabel(t, dir, "b.png", "AZT1002")

	out, _, err := executeCommand(t, "scan", "--no-ocr", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+a+"\nAZT1001\n")
	assert.Contains(t, out, "# "+b+"\nAZT1002\n")
}

func TestScanCommandErrors(t *testing.T) {
	dir := t.TempDir()
	label := writeLabel(t, dir, "label.png", "AZT1001")
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("not an image"), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{"scan"}, "requires at least 1 arg"},
		{"missing file", []string{"scan", filepath.Join(dir, "missing.png")}, "missing.png"},
		{"unsupported extension", []string{"scan", filepath.Join(dir, "notes.txt")}, "unsupported format"},
		{"undecodable", []string{"scan", "--no-ocr", broken}, "broken.png"},
		{"bad pattern", []string{"scan", "--pattern", "(", label}, "pattern"},
		{"bad sweep", []string{"scan", "--sweep", "spiral", label}, "spiral"},
		{"bad format", []string{"scan", "--no-ocr", "--format", "xml", label}, "xml"},
		{"stdin in list", []string{"scan", "-", label}, "stdin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
