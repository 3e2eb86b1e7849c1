package testutil

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// GetProjectRoot returns the project root directory by finding go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find go.mod file starting from %s", filepath.Dir(filename))
}

// WriteImage encodes img as PNG into dir/name and returns the path.
func WriteImage(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, PNG(img), 0o600))
	return path
}

// SideBySide lays out images left to right on a white canvas with gap pixels
// between them and margin pixels around.
func SideBySide(gap, margin int, imgs ...image.Image) *image.Gray {
	w, h := margin, 0
	for i, img := range imgs {
		if i > 0 {
			w += gap
		}
		w += img.Bounds().Dx()
		h = max(h, img.Bounds().Dy())
	}
	out := Canvas(w+margin, h+2*margin)
	x := margin
	for _, img := range imgs {
		Paste(out, img, x, margin)
		x += img.Bounds().Dx() + gap
	}
	return out
}
