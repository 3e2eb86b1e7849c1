package barcode

import (
	"context"
	"errors"
	"image"
	"image/color"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/MeKo-Tech/codescan/internal/utils"
)

// defaultMaxSymbols caps multi-symbol passes over one image.
const defaultMaxSymbols = 8

// ZXingBackend decodes symbols with gozxing readers.
// DataMatrix, Aztec and PDF417 are not available in gozxing and are ignored
// when requested.
type ZXingBackend struct{}

// NewZXingBackend returns the gozxing-backed decoder.
func NewZXingBackend() *ZXingBackend { return &ZXingBackend{} }

type readerFactory struct {
	format    Format
	linear    bool
	confirm   bool // hit must pass barsCoherent
	newReader func() gozxing.Reader
}

// EAN-13 is tried before UPC-A so a leading-zero EAN is reported as EAN-13.
// The EAN/UPC family only carries a mod-10 check digit and is confirmed.
var zxingReaders = []readerFactory{
	{FormatQR, false, false, func() gozxing.Reader { return qrcode.NewQRCodeReader() }},
	{FormatCode128, true, false, func() gozxing.Reader { return oned.NewCode128Reader() }},
	{FormatCode39, true, false, func() gozxing.Reader { return oned.NewCode39Reader() }},
	{FormatEAN13, true, true, func() gozxing.Reader { return oned.NewEAN13Reader() }},
	{FormatEAN8, true, true, func() gozxing.Reader { return oned.NewEAN8Reader() }},
	{FormatUPCA, true, true, func() gozxing.Reader { return oned.NewUPCAReader() }},
	{FormatUPCE, true, true, func() gozxing.Reader { return oned.NewUPCEReader() }},
	{FormatITF, true, false, func() gozxing.Reader { return oned.NewITFReader() }},
	{FormatCodabar, true, false, func() gozxing.Reader { return oned.NewCodaBarReader() }},
}

// SupportedFormats lists the symbologies this backend can decode.
func (b *ZXingBackend) SupportedFormats() []Format {
	out := make([]Format, 0, len(zxingReaders))
	for _, r := range zxingReaders {
		out = append(out, r.format)
	}
	return out
}

// Decode implements Backend. Each found symbol is blanked out of a private
// working copy before the next pass, up to opts.MaxSymbols symbols.
func (b *ZXingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNotFound
	}

	readers := selectReaders(opts.Formats)
	if len(readers) == 0 {
		return nil, ErrNotFound
	}

	hints := map[gozxing.DecodeHintType]interface{}{}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	limit := opts.MaxSymbols
	if limit <= 0 {
		limit = 1
	}
	limit = min(limit, defaultMaxSymbols)

	work := utils.ToGray(img)
	if work == img {
		work = cloneGray(work)
	}

	var out []Result
	for len(out) < limit {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, blank, ok := decodeOnce(work, readers, hints)
		if !ok {
			break
		}
		out = append(out, res)
		if blank.Empty() {
			break
		}
		fillWhite(work, blank)
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func selectReaders(formats []Format) []readerFactory {
	if len(formats) == 0 {
		return zxingReaders
	}
	want := make(map[Format]bool, len(formats))
	for _, f := range formats {
		want[f] = true
	}
	var out []readerFactory
	for _, r := range zxingReaders {
		if want[r.format] {
			out = append(out, r)
		}
	}
	return out
}

// decodeOnce runs every reader until one succeeds and returns the result
// together with the rectangle to blank before the next pass. Hits that fail
// confirmation are skipped and the next reader is tried.
func decodeOnce(g *image.Gray, readers []readerFactory, hints map[gozxing.DecodeHintType]interface{}) (Result, image.Rectangle, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(g)
	if err != nil {
		return Result{}, image.Rectangle{}, false
	}

	for _, rf := range readers {
		r, err := rf.newReader().Decode(bmp, hints)
		if err != nil || r == nil || r.GetText() == "" {
			continue
		}
		pts := make([]Point, 0, len(r.GetResultPoints()))
		for _, p := range r.GetResultPoints() {
			pts = append(pts, Point{X: int(p.GetX()), Y: int(p.GetY())})
		}
		if rf.confirm && !barsCoherent(g, pts) {
			continue
		}
		res := Result{
			Format: mapFormatFromZXing(r.GetBarcodeFormat()),
			Value:  r.GetText(),
			Points: pts,
			BBox:   rectFromPoints(pts),
		}
		var blank image.Rectangle
		if rf.linear {
			blank = linearExtent(g, pts)
		} else {
			blank = grow(res.BBox, 0.4).Intersect(g.Bounds())
		}
		return res, blank, true
	}
	return Result{}, image.Rectangle{}, false
}

// linearExtent estimates the area covered by a 1D symbol from the scan line
// endpoints reported by the reader. The line is extended perpendicular to the
// bars while the profile keeps enough light/dark transitions.
func linearExtent(g *image.Gray, pts []Point) image.Rectangle {
	if len(pts) < 2 {
		return image.Rectangle{}
	}
	bb := rectFromPoints(pts)
	b := g.Bounds()
	const minTransitions = 8
	pad := 4

	if bb.Dx() >= bb.Dy() {
		x0, x1 := max(b.Min.X, bb.Min.X-pad), min(b.Max.X, bb.Max.X+pad)
		y := (bb.Min.Y + bb.Max.Y) / 2
		top, bottom := y, y+1
		for top > b.Min.Y && transitions(g, x0, x1, top-1, true) >= minTransitions {
			top--
		}
		for bottom < b.Max.Y && transitions(g, x0, x1, bottom, true) >= minTransitions {
			bottom++
		}
		return image.Rect(x0, max(b.Min.Y, top-pad), x1, min(b.Max.Y, bottom+pad))
	}

	y0, y1 := max(b.Min.Y, bb.Min.Y-pad), min(b.Max.Y, bb.Max.Y+pad)
	x := (bb.Min.X + bb.Max.X) / 2
	left, right := x, x+1
	for left > b.Min.X && transitions(g, y0, y1, left-1, false) >= minTransitions {
		left--
	}
	for right < b.Max.X && transitions(g, y0, y1, right, false) >= minTransitions {
		right++
	}
	return image.Rect(max(b.Min.X, left-pad), y0, min(b.Max.X, right+pad), y1)
}

// transitions counts dark/light changes along a row (horizontal) or column.
func transitions(g *image.Gray, from, to, at int, horizontal bool) int {
	n := 0
	prev := false
	for i := from; i < to; i++ {
		var v uint8
		if horizontal {
			v = g.GrayAt(i, at).Y
		} else {
			v = g.GrayAt(at, i).Y
		}
		dark := v < 128
		if i > from && dark != prev {
			n++
		}
		prev = dark
	}
	return n
}

func grow(r image.Rectangle, frac float64) image.Rectangle {
	dx := int(float64(r.Dx())*frac) + 1
	dy := int(float64(r.Dy())*frac) + 1
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy)
}

func fillWhite(g *image.Gray, r image.Rectangle) {
	r = r.Intersect(g.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: 255})
		}
	}
}

func cloneGray(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Bounds())
	copy(out.Pix, g.Pix)
	return out
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_PDF_417:
		return FormatPDF417
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}

var _ Backend = (*ZXingBackend)(nil)

// IsNotFound reports whether err means no symbol was present.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
