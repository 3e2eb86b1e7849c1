package benchmark

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/testutil"
)

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	suite.Add("success_test", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})
	suite.Add("error_test", func() error {
		return errors.New("test error")
	})

	result := suite.Run("success_test", 5)
	assert.Equal(t, "success_test", result.Name)
	assert.Equal(t, 5, result.Iterations)
	require.NoError(t, result.Error)
	assert.Positive(t, result.Duration)
	assert.GreaterOrEqual(t, result.Average(), time.Millisecond)

	result = suite.Run("error_test", 3)
	require.Error(t, result.Error)
	assert.Equal(t, 0, result.Iterations)
	assert.Contains(t, result.String(), "ERROR - test error")

	result = suite.Run("non_existent", 1)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "not found")
	assert.Zero(t, result.Average())
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("fast_test", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})
	suite.Add("slow_test", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	results := suite.RunAll(3)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())
	assert.Equal(t, "fast_test", results[0].Name)
	assert.Equal(t, "slow_test", results[1].Name)
	assert.Greater(t, results[1].Duration, results[0].Duration)
}

func TestTimer(t *testing.T) {
	timer := NewTimer("op")
	time.Sleep(time.Millisecond)
	d := timer.Stop()
	assert.Equal(t, d, timer.Duration())
	assert.True(t, strings.HasPrefix(timer.String(), "op: "))
}

func TestSweepComparison(t *testing.T) {
	dir := t.TempDir()
	frame := testutil.Canvas(420, 180)
	testutil.Paste(frame, testutil.MustCode128("AZT1001", 2, 70), 50, 50)
	label := testutil.WriteImage(t, dir, "label.png", frame)
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("junk"), 0o600))

	opts := pipeline.DefaultOptions()
	opts.OCREnabled = false
	opts.Workers = 4
	scanner := pipeline.NewScanner(barcode.NewBackend(), nil, opts)

	var log bytes.Buffer
	results := NewSweepComparison(scanner, 30, []string{label, broken}).WithLog(&log).Run(context.Background(), 1)

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, 420, r.Width)
	assert.Equal(t, 180, r.Height)
	assert.Equal(t, []string{"AZT1001"}, r.CoarseCodes)
	assert.Equal(t, []string{"AZT1001"}, r.FineCodes)
	assert.Equal(t, 1, r.Coarse.Iterations)
	assert.Positive(t, r.Slowdown())
	assert.Contains(t, log.String(), "label.png (420x180)")
	assert.Contains(t, log.String(), "broken.png:")

	var csv bytes.Buffer
	require.NoError(t, WriteCSV(&csv, results))
	lines := strings.Split(strings.TrimSpace(csv.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "label.png,420,180,"), lines[1])
}
