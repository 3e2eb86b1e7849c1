package utils

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	t.Run("valid png", func(t *testing.T) {
		img, meta, err := DecodeImage(encodePNG(t, uniformGray(12, 7, 200)))
		require.NoError(t, err)
		assert.Equal(t, 12, img.Bounds().Dx())
		assert.Equal(t, "png", meta.Format)
		assert.Equal(t, 7, meta.Height)
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, _, err := DecodeImage([]byte("definitely not an image"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidImage))
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := DecodeImage(nil)
		assert.ErrorIs(t, err, ErrInvalidImage)
	})
}

func TestReadImageFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, uniformGray(4, 4, 10)), 0o600))

	data, err := ReadImageFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = ReadImageFile(filepath.Join(dir, "notes.txt"))
	var ipe *ImageProcessingError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "load", ipe.Operation)

	_, err = ReadImageFile("")
	assert.Error(t, err)
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a.JPG"))
	assert.True(t, IsSupportedImage("scan.webp"))
	assert.False(t, IsSupportedImage("a.pdf"))
	assert.False(t, IsSupportedImage("noext"))
}

func TestToGrayAndMeanLuminance(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.NRGBA{A: 255})

	g := ToGray(img)
	assert.Equal(t, uint8(255), g.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), g.GrayAt(1, 0).Y)
	assert.InDelta(t, 127.5, MeanLuminance(g), 1e-9)
}

func TestToGrayNormalizesBounds(t *testing.T) {
	g := uniformGray(10, 10, 50)
	sub := g.SubImage(image.Rect(3, 3, 6, 8))
	out := ToGray(sub)
	assert.Equal(t, image.Rect(0, 0, 3, 5), out.Bounds())
}

func TestApplyGainBias(t *testing.T) {
	out := ApplyGainBias(uniformGray(3, 3, 40), 1.5, 30)
	c := out.NRGBAAt(1, 1)
	assert.Equal(t, uint8(90), c.R)
	assert.Equal(t, uint8(255), c.A)

	bright := ApplyGainBias(uniformGray(1, 1, 250), 2, 10)
	assert.Equal(t, uint8(255), bright.NRGBAAt(0, 0).G)
}

func TestOtsuThreshold(t *testing.T) {
	g := uniformGray(10, 10, 220)
	for y := 0; y < 10; y++ {
		for x := 0; x < 4; x++ {
			g.SetGray(x, y, color.Gray{Y: 20})
		}
	}
	th := OtsuThreshold(g)
	assert.GreaterOrEqual(t, th, uint8(20))
	assert.Less(t, th, uint8(220))

	mask := Binarize(g, th, true)
	assert.True(t, mask[0], "dark pixel should be foreground when inverted")
	assert.False(t, mask[9], "light pixel should be background when inverted")
}

func TestOtsuThresholdUniform(t *testing.T) {
	for _, v := range []uint8{0, 128, 255} {
		g := uniformGray(5, 5, v)
		th := OtsuThreshold(g)
		mask := Binarize(g, th, true)
		assert.Len(t, mask, 25)
	}
}

func TestLaplacianVariance(t *testing.T) {
	flat := uniformGray(20, 20, 128)
	assert.Zero(t, LaplacianVariance(flat))

	checker := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if (x+y)%2 == 0 {
				checker.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	sharp := LaplacianVariance(checker)
	blurred := LaplacianVariance(GaussianBlur(checker, 2))
	assert.Greater(t, sharp, blurred)
	assert.Zero(t, LaplacianVariance(uniformGray(2, 2, 9)))
}

func TestCrop(t *testing.T) {
	g := uniformGray(50, 40, 77)
	out := Crop(g, image.Rect(10, 10, 20, 20), 5)
	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())

	edge := Crop(g, image.Rect(0, 0, 10, 10), 8)
	assert.Equal(t, 18, edge.Bounds().Dx(), "padding is clamped at the image edge")

	empty := Crop(g, image.Rect(100, 100, 110, 110), 0)
	assert.True(t, empty.Bounds().Empty())
}

func TestImageProcessingErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ImageProcessingError{Operation: "crop", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "crop")
}
