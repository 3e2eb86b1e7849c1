package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/detector"
	"github.com/MeKo-Tech/codescan/internal/testutil"
)

type mockBackend struct {
	values []string
	calls  atomic.Int32
}

func (m *mockBackend) Decode(_ context.Context, _ image.Image, _ barcode.Options) ([]barcode.Result, error) {
	m.calls.Add(1)
	if len(m.values) == 0 {
		return nil, barcode.ErrNotFound
	}
	out := make([]barcode.Result, 0, len(m.values))
	for _, v := range m.values {
		out = append(out, barcode.Result{Value: v, Format: barcode.FormatCode128})
	}
	return out, nil
}

type mockEngine struct {
	text  string
	calls atomic.Int32
}

func (m *mockEngine) Recognize(context.Context, image.Image) (string, error) {
	m.calls.Add(1)
	return m.text, nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Workers = 4
	return opts
}

// labelFrame places one Code 128 symbol on a white photo-sized canvas.
func labelFrame(code string) *image.Gray {
	frame := testutil.Canvas(420, 180)
	testutil.Paste(frame, testutil.MustCode128(code, 2, 70), 50, 50)
	return frame
}

func TestScanSingleCode(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())

	res, err := s.Scan(context.Background(), testutil.PNG(labelFrame("AZT1001")), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT1001"}, res.Codes)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, SourceRegion, res.Candidates[0].Source)
	assert.Equal(t, "code128", res.Candidates[0].Format)
	assert.NotNil(t, res.Candidates[0].Region)
	assert.False(t, res.OCRUsed)
	assert.False(t, res.Empty())
}

func TestScanJPEGInput(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())

	res, err := s.Scan(context.Background(), testutil.JPEG(labelFrame("AZT1001")), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT1001"}, res.Codes)
}

func TestScanIdempotent(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())
	data := testutil.PNG(testutil.SideBySide(70, 40,
		testutil.MustCode128("AZT1001", 2, 70),
		testutil.MustCode128("AZT1002", 2, 70),
	))

	first, err := s.Scan(context.Background(), data, nil)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), data, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScanRotationInvariance(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())
	frame := labelFrame("AZT1001")

	upright, err := s.Scan(context.Background(), testutil.PNG(frame), nil)
	require.NoError(t, err)
	turned, err := s.Scan(context.Background(), testutil.PNG(imaging.Rotate90(frame)), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"AZT1001"}, upright.Codes)
	assert.Equal(t, upright.Codes, turned.Codes)
}

func TestScanSideBySideLeftToRight(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())
	frame := testutil.SideBySide(70, 40,
		testutil.MustCode128("AZT1001", 2, 70),
		testutil.MustCode128("AZT1002", 2, 70),
	)

	res, err := s.Scan(context.Background(), testutil.PNG(frame), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT1001", "AZT1002"}, res.Codes)
	assert.GreaterOrEqual(t, res.Regions, 2)
}

func TestScanDeduplicatesRepeatedCode(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())
	frame := testutil.SideBySide(70, 40,
		testutil.MustCode128("AZT1001", 2, 70),
		testutil.MustCode128("AZT1001", 2, 70),
	)

	res, err := s.Scan(context.Background(), testutil.PNG(frame), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT1001"}, res.Codes)
	assert.Len(t, res.Candidates, 1)
}

func TestScanDeduplicatesOverlappingRegions(t *testing.T) {
	sym := testutil.MustCode128("AZT1001", 2, 70)
	w, h := sym.Bounds().Dx(), sym.Bounds().Dy()
	frame := testutil.Canvas(2*w+140, h+80)
	testutil.Paste(frame, sym, 20, 30)
	testutil.Paste(frame, sym, w+60, 10)
	// an underline joined to the first label reaches under the second
	draw.Draw(frame, image.Rect(20, 30+h, 2*w+100, 34+h), image.NewUniform(color.Black), image.Point{}, draw.Src)

	opts := testOptions()
	regions := detector.Locate(PreprocessImage(frame, opts.Preprocess).Mask, opts.Locator)
	require.Len(t, regions, 2)
	a, b := regions[0].Bounds, regions[1].Bounds
	assert.True(t, a.Overlaps(b))
	assert.False(t, a.In(b))
	assert.False(t, b.In(a))

	res, err := NewScanner(barcode.NewBackend(), nil, opts).Scan(context.Background(), testutil.PNG(frame), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Regions)
	assert.Equal(t, []string{"AZT1001"}, res.Codes)
	assert.Len(t, res.Candidates, 1)
}

func TestScanAcceptancePattern(t *testing.T) {
	backend := &mockBackend{values: []string{"AZT10013025", "1234567890128"}}
	s := NewScanner(backend, nil, testOptions())
	data := testutil.PNG(testutil.Canvas(60, 40))

	res, err := s.Scan(context.Background(), data, regexp.MustCompile(`^AZT\d+`))
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT10013025"}, res.Codes)

	res, err = s.Scan(context.Background(), data, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT10013025", "1234567890128"}, res.Codes)
}

func TestScanDefaultAcceptancePattern(t *testing.T) {
	opts := testOptions()
	opts.AcceptPattern = regexp.MustCompile(`^AZT\d+`)
	s := NewScanner(&mockBackend{values: []string{"1234567890128"}}, nil, opts)

	res, err := s.Scan(context.Background(), testutil.PNG(testutil.Canvas(60, 40)), nil)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.NotNil(t, res.Codes)

	res, err = s.Scan(context.Background(), testutil.PNG(testutil.Canvas(60, 40)), AcceptAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567890128"}, res.Codes)
}

func TestScanMockBackendCallsEveryAttempt(t *testing.T) {
	backend := &mockBackend{}
	s := NewScanner(backend, nil, testOptions())

	// A blank canvas yields no regions, leaving the four whole-frame attempts.
	_, err := s.Scan(context.Background(), testutil.PNG(testutil.Canvas(60, 40)), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(4), backend.calls.Load())
}

func TestScanOCRShortCircuit(t *testing.T) {
	engine := &mockEngine{text: "AZT99999"}
	s := NewScanner(&mockBackend{values: []string{"AZT1"}}, engine, testOptions())

	res, err := s.Scan(context.Background(), testutil.PNG(testutil.Canvas(60, 40)), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT1"}, res.Codes)
	assert.Equal(t, int32(0), engine.calls.Load())
	assert.False(t, res.OCRUsed)
}

func TestScanOCRFallbackOnBlurryText(t *testing.T) {
	engine := &mockEngine{text: "Inventar\nazt30001\n"}
	s := NewScanner(barcode.NewBackend(), engine, testOptions())

	label := testutil.Blur(testutil.TextImage("AZT30001", 4), 2.5)
	frame := testutil.Canvas(label.Bounds().Dx()+80, label.Bounds().Dy()+80)
	testutil.Paste(frame, label, 40, 40)

	res, err := s.Scan(context.Background(), testutil.PNG(frame), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT30001"}, res.Codes)
	assert.True(t, res.OCRUsed)
	assert.Equal(t, int32(1), engine.calls.Load())
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, SourceOCR, res.Candidates[0].Source)
	assert.Nil(t, res.Candidates[0].Region)
}

func TestScanOCRResultFiltered(t *testing.T) {
	engine := &mockEngine{text: "AZT30001"}
	s := NewScanner(&mockBackend{}, engine, testOptions())

	res, err := s.Scan(context.Background(), testutil.PNG(testutil.TextImage("AZT30001", 2)), regexp.MustCompile(`^SN\d+$`))
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.True(t, res.OCRUsed)
}

func TestScanOCRDisabled(t *testing.T) {
	engine := &mockEngine{text: "AZT30001"}
	opts := testOptions()
	opts.OCREnabled = false
	s := NewScanner(&mockBackend{}, engine, opts)

	res, err := s.Scan(context.Background(), testutil.PNG(testutil.Canvas(60, 40)), nil)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, int32(0), engine.calls.Load())
	assert.False(t, s.OCRAvailable())
}

// tiltedLabel is a Code 128 label rotated between quarter turns.
func tiltedLabel() image.Image {
	code := testutil.MustCode128("AZT2002", 3, 55)
	padded := testutil.Canvas(code.Bounds().Dx()+40, code.Bounds().Dy()+40)
	testutil.Paste(padded, code, 20, 20)
	return testutil.RotateOnWhite(padded, 47)
}

func TestScanRotated47NeedsFineSweep(t *testing.T) {
	data := testutil.PNG(tiltedLabel())

	coarse := NewScanner(barcode.NewBackend(), nil, testOptions())
	res, err := coarse.Scan(context.Background(), data, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Codes)

	fine := coarse.WithSweep(barcode.FineSweep(10))
	res, err = fine.Scan(context.Background(), data, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT2002"}, res.Codes)
}

func TestTiltedLabelYieldsNoEANAtIntermediateAngle(t *testing.T) {
	opts := testOptions()
	frame := PreprocessImage(tiltedLabel(), opts.Preprocess)

	dec := opts.Decode
	dec.Formats = []barcode.Format{barcode.FormatEAN13, barcode.FormatEAN8, barcode.FormatUPCA, barcode.FormatUPCE}
	d := barcode.NewRotatingDecoder(barcode.NewBackend(), barcode.FineSweep(10), dec)

	for _, angle := range []float64{20, 30} {
		assert.Empty(t, d.Attempt(context.Background(), frame.Gray, angle), "angle %v", angle)
	}
}

func TestScanQRCode(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())
	qr, err := testutil.QR("AZT10013025", 220)
	require.NoError(t, err)
	frame := testutil.Canvas(320, 300)
	testutil.Paste(frame, qr, 50, 40)

	res, err := s.Scan(context.Background(), testutil.PNG(frame), regexp.MustCompile(`^AZT\d+`))
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT10013025"}, res.Codes)
	assert.Equal(t, "qr", res.Candidates[0].Format)
}

func TestScanFormatsFilter(t *testing.T) {
	opts := testOptions()
	opts.Decode.Formats = []barcode.Format{barcode.FormatQR}
	s := NewScanner(barcode.NewBackend(), nil, opts)

	res, err := s.Scan(context.Background(), testutil.PNG(labelFrame("AZT1001")), nil)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestScanUnderexposed(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())
	dark := testutil.Darken(labelFrame("AZT1001"), 0.15)

	res, err := s.Scan(context.Background(), testutil.PNG(dark), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AZT1001"}, res.Codes)
}

func TestScanSolidFrames(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), &mockEngine{}, testOptions())
	for _, c := range []color.Color{color.Black, color.White, color.Gray{Y: 128}} {
		res, err := s.Scan(context.Background(), testutil.PNG(testutil.Solid(120, 80, c)), nil)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	}
}

func TestScanInvalidImage(t *testing.T) {
	s := NewScanner(barcode.NewBackend(), nil, testOptions())

	_, err := s.Scan(context.Background(), []byte("definitely not an image"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.True(t, IsInvalidImage(err))

	_, err = s.Scan(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = s.ScanImage(context.Background(), image.NewGray(image.Rect(0, 0, 0, 0)), nil)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestScanCancelled(t *testing.T) {
	backend := &mockBackend{}
	s := NewScanner(backend, nil, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, testutil.PNG(labelFrame("AZT1001")), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), backend.calls.Load())
}

func TestWithSweepKeepsOriginal(t *testing.T) {
	s := NewScanner(&mockBackend{}, nil, testOptions())
	fine := s.WithSweep(barcode.FineSweep(15))
	assert.Equal(t, barcode.SweepCoarse, s.Options().Sweep.Name)
	assert.Equal(t, barcode.SweepFine, fine.Options().Sweep.Name)
}
