package testutil

import (
	"fmt"
	"image"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	qrcode "github.com/skip2/go-qrcode"
)

// Code128 renders content as a Code 128 symbol with the given module width
// and bar height in pixels, including the writer's quiet zone.
func Code128(content string, module, height int) (*image.Gray, error) {
	return linear(oned.NewCode128Writer(), gozxing.BarcodeFormat_CODE_128, content, module, height)
}

// EAN13 renders a 12 or 13 digit EAN-13 symbol like Code128.
func EAN13(content string, module, height int) (*image.Gray, error) {
	return linear(oned.NewEAN13Writer(), gozxing.BarcodeFormat_EAN_13, content, module, height)
}

func linear(writer gozxing.Writer, format gozxing.BarcodeFormat, content string, module, height int) (*image.Gray, error) {
	if module <= 0 {
		module = 2
	}

	// The first pass reports the natural width at one pixel per module.
	natural, err := writer.Encode(content, format, 1, height, nil)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	bm, err := writer.Encode(content, format, natural.GetWidth()*module, height, nil)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return bitMatrixToGray(bm), nil
}

// MustCode128 is Code128 for fixtures that cannot fail.
func MustCode128(content string, module, height int) *image.Gray {
	img, err := Code128(content, module, height)
	if err != nil {
		panic(err)
	}
	return img
}

// QR renders content as a QR symbol size pixels square.
func QR(content string, size int) (image.Image, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return q.Image(size), nil
}

func bitMatrixToGray(bm *gozxing.BitMatrix) *image.Gray {
	w, h := bm.GetWidth(), bm.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !bm.Get(x, y) {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}
