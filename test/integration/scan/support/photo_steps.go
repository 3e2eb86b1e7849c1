package support

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/codescan/internal/testutil"
)

// labelFrame places one Code 128 symbol on a white canvas.
func labelFrame(code string) (*image.Gray, error) {
	sym, err := testutil.Code128(code, 2, 70)
	if err != nil {
		return nil, err
	}
	frame := testutil.Canvas(420, 180)
	testutil.Paste(frame, sym, 50, 50)
	return frame, nil
}

func (testCtx *TestContext) setPhoto(img image.Image) {
	testCtx.PhotoImage = img
	testCtx.Photo = testutil.PNG(img)
}

func (testCtx *TestContext) aPhotoWithALabel(code string) error {
	frame, err := labelFrame(code)
	if err != nil {
		return err
	}
	testCtx.setPhoto(frame)
	return nil
}

func (testCtx *TestContext) aPhotoWithTwoLabels(left, right string) error {
	a, err := testutil.Code128(left, 2, 70)
	if err != nil {
		return err
	}
	b, err := testutil.Code128(right, 2, 70)
	if err != nil {
		return err
	}
	testCtx.setPhoto(testutil.SideBySide(70, 40, a, b))
	return nil
}

func (testCtx *TestContext) aPhotoWithAQRCode(content string) error {
	qr, err := testutil.QR(content, 220)
	if err != nil {
		return err
	}
	frame := testutil.Canvas(320, 300)
	testutil.Paste(frame, qr, 50, 40)
	testCtx.setPhoto(frame)
	return nil
}

func (testCtx *TestContext) aTiltedLabel(code string, angle float64) error {
	sym, err := testutil.Code128(code, 3, 55)
	if err != nil {
		return err
	}
	padded := testutil.Canvas(sym.Bounds().Dx()+40, sym.Bounds().Dy()+40)
	testutil.Paste(padded, sym, 20, 20)
	testCtx.setPhoto(testutil.RotateOnWhite(padded, angle))
	return nil
}

func (testCtx *TestContext) aPhotoWithPrintedText(text string) error {
	label := testutil.Blur(testutil.TextImage(text, 4), 2.5)
	frame := testutil.Canvas(label.Bounds().Dx()+80, label.Bounds().Dy()+80)
	testutil.Paste(frame, label, 40, 40)
	testCtx.setPhoto(frame)
	return nil
}

func (testCtx *TestContext) aBlankPhoto() error {
	testCtx.setPhoto(testutil.Canvas(200, 120))
	return nil
}

func (testCtx *TestContext) aCorruptPhoto() error {
	testCtx.PhotoImage = nil
	testCtx.Photo = []byte("definitely not an image")
	return nil
}

func (testCtx *TestContext) thePhotoIsRotatedQuarterTurn() error {
	if testCtx.PhotoImage == nil {
		return errors.New("no photo to rotate")
	}
	testCtx.setPhoto(imaging.Rotate90(testCtx.PhotoImage))
	return nil
}

func (testCtx *TestContext) thePhotoIsUnderexposed() error {
	if testCtx.PhotoImage == nil {
		return errors.New("no photo to darken")
	}
	testCtx.setPhoto(testutil.Darken(testCtx.PhotoImage, 0.15))
	return nil
}

func (testCtx *TestContext) thePhotoIsBlurred(sigma float64) error {
	if testCtx.PhotoImage == nil {
		return errors.New("no photo to blur")
	}
	testCtx.setPhoto(testutil.Blur(testCtx.PhotoImage, sigma))
	return nil
}

func (testCtx *TestContext) thePhotoIsSavedAsJPEG() error {
	if testCtx.PhotoImage == nil {
		return errors.New("no photo to encode")
	}
	testCtx.Photo = testutil.JPEG(testCtx.PhotoImage)
	return nil
}

func (testCtx *TestContext) thePhotoIsSavedAs(name string) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := os.WriteFile(path, testCtx.Photo, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	testCtx.PhotoPath = path
	return nil
}

// RegisterPhotoSteps registers steps that build input photos.
func (testCtx *TestContext) RegisterPhotoSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a photo with a Code 128 label "([^"]*)"$`, testCtx.aPhotoWithALabel)
	sc.Step(`^a photo with Code 128 labels "([^"]*)" and "([^"]*)" side by side$`, testCtx.aPhotoWithTwoLabels)
	sc.Step(`^a photo with a QR code "([^"]*)"$`, testCtx.aPhotoWithAQRCode)
	sc.Step(`^a photo with a Code 128 label "([^"]*)" tilted by (-?\d+(?:\.\d+)?) degrees$`, testCtx.aTiltedLabel)
	sc.Step(`^a photo with blurry printed text "([^"]*)"$`, testCtx.aPhotoWithPrintedText)
	sc.Step(`^a blank photo$`, testCtx.aBlankPhoto)
	sc.Step(`^a corrupt photo$`, testCtx.aCorruptPhoto)
	sc.Step(`^the photo is rotated a quarter turn$`, testCtx.thePhotoIsRotatedQuarterTurn)
	sc.Step(`^the photo is underexposed$`, testCtx.thePhotoIsUnderexposed)
	sc.Step(`^the photo is blurred with sigma (\d+(?:\.\d+)?)$`, testCtx.thePhotoIsBlurred)
	sc.Step(`^the photo is saved as JPEG$`, testCtx.thePhotoIsSavedAsJPEG)
	sc.Step(`^the photo is written to "([^"]*)"$`, testCtx.thePhotoIsSavedAs)
}
