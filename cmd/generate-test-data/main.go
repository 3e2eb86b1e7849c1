package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/codescan/internal/testutil"
)

// photo is one generated fixture and the codes a scan should return.
type photo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Codes       []string `json:"codes"`
	Sweep       string   `json:"sweep,omitempty"`
	OCR         bool     `json:"ocr,omitempty"`

	img image.Image
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir = flag.String("out", "testdata/photos", "Output directory, relative to the project root")
		jpeg   = flag.Bool("jpeg", false, "Also write JPEG copies of every photo")
		help   = flag.Bool("h", false, "Show help")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic label photos and a manifest of expected codes.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	dir := filepath.Join(root, *outDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("Failed to create output directory", "error", err)
		os.Exit(1)
	}

	photos, err := buildPhotos()
	if err != nil {
		slog.Error("Failed to build photos", "error", err)
		os.Exit(1)
	}
	if err := writePhotos(dir, photos, *jpeg); err != nil {
		slog.Error("Failed to write photos", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed", "dir", dir, "photos", len(photos))
}

func label(code string, x, y int) (*image.Gray, error) {
	sym, err := testutil.Code128(code, 2, 70)
	if err != nil {
		return nil, err
	}
	frame := testutil.Canvas(sym.Bounds().Dx()+2*x, sym.Bounds().Dy()+2*y)
	testutil.Paste(frame, sym, x, y)
	return frame, nil
}

func buildPhotos() ([]photo, error) {
	single, err := label("AZT1001", 50, 50)
	if err != nil {
		return nil, err
	}
	a, err := testutil.Code128("AZT1001", 2, 70)
	if err != nil {
		return nil, err
	}
	b, err := testutil.Code128("AZT1002", 2, 70)
	if err != nil {
		return nil, err
	}
	tilted, err := testutil.Code128("AZT2002", 3, 55)
	if err != nil {
		return nil, err
	}
	tiltedFrame := testutil.Canvas(tilted.Bounds().Dx()+40, tilted.Bounds().Dy()+40)
	testutil.Paste(tiltedFrame, tilted, 20, 20)

	qr, err := testutil.QR("AZT10013025", 220)
	if err != nil {
		return nil, err
	}
	qrFrame := testutil.Canvas(320, 300)
	testutil.Paste(qrFrame, qr, 50, 40)

	text := testutil.Blur(testutil.TextImage("AZT30001", 4), 2.5)
	textFrame := testutil.Canvas(text.Bounds().Dx()+80, text.Bounds().Dy()+80)
	testutil.Paste(textFrame, text, 40, 40)

	return []photo{
		{Name: "single", Description: "One upright Code 128 label", Codes: []string{"AZT1001"}, img: single},
		{Name: "two_labels", Description: "Two labels side by side", Codes: []string{"AZT1001", "AZT1002"},
			img: testutil.SideBySide(70, 40, a, b)},
		{Name: "quarter_turn", Description: "Label photographed sideways", Codes: []string{"AZT1001"},
			img: imaging.Rotate90(single)},
		{Name: "upside_down", Description: "Label photographed upside down", Codes: []string{"AZT1001"},
			img: imaging.Rotate180(single)},
		{Name: "tilted_47", Description: "Label tilted between quarter turns", Codes: []string{"AZT2002"}, Sweep: "fine",
			img: testutil.RotateOnWhite(tiltedFrame, 47)},
		{Name: "underexposed", Description: "Dark photo of one label", Codes: []string{"AZT1001"},
			img: testutil.Darken(single, 0.15)},
		{Name: "qr", Description: "QR code label", Codes: []string{"AZT10013025"}, img: qrFrame},
		{Name: "printed_text", Description: "Blurred printed identifier without a symbol", Codes: []string{"AZT30001"}, OCR: true,
			img: textFrame},
		{Name: "blank", Description: "Empty white frame", Codes: []string{}, img: testutil.Canvas(200, 120)},
	}, nil
}

func writePhotos(dir string, photos []photo, withJPEG bool) error {
	for _, p := range photos {
		path := filepath.Join(dir, p.Name+".png")
		if err := os.WriteFile(path, testutil.PNG(p.img), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if withJPEG {
			path = filepath.Join(dir, p.Name+".jpg")
			if err := os.WriteFile(path, testutil.JPEG(p.img), 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		slog.Info("Generated photo", "name", p.Name, "codes", p.Codes)
	}

	data, err := json.MarshalIndent(photos, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o600)
}
