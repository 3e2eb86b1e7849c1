package barcode

import "image"

// minBarAgreement is the share of samples two nearby scan lines must agree
// on before a weakly checked 1D hit is accepted.
const minBarAgreement = 0.75

// minConfirmSpan is the shortest scan line worth checking, in pixels.
const minConfirmSpan = 16

// barsCoherent reports whether the bars under a 1D hit run across its scan
// line. A parallel line two average runs away, on either side, must see
// nearly the same light/dark pattern. Bars slanted against the scan line
// shift between the two lines and fail, which rejects EAN/UPC payloads
// that the readers assemble from a tilted symbol of another kind.
func barsCoherent(g *image.Gray, pts []Point) bool {
	if len(pts) < 2 {
		return true
	}
	a, b := pts[0], pts[1]
	bounds := g.Bounds()
	horizontal := abs(b.X-a.X) >= abs(b.Y-a.Y)

	var from, to, at, lo, hi int
	if horizontal {
		from, to = max(bounds.Min.X, min(a.X, b.X)), min(bounds.Max.X, max(a.X, b.X)+1)
		at = (a.Y + b.Y) / 2
		lo, hi = bounds.Min.Y, bounds.Max.Y
	} else {
		from, to = max(bounds.Min.Y, min(a.Y, b.Y)), min(bounds.Max.Y, max(a.Y, b.Y)+1)
		at = (a.X + b.X) / 2
		lo, hi = bounds.Min.X, bounds.Max.X
	}
	if to-from < minConfirmSpan || at < lo || at >= hi {
		return true
	}

	line := sampleLine(g, from, to, at, horizontal)
	threshold := midLevel(line)
	runs := countRuns(line, threshold)
	step := max(2, 2*len(line)/runs)

	best := 0.0
	for _, off := range []int{-step, step} {
		other := at + off
		if other < lo || other >= hi {
			continue
		}
		best = max(best, agreement(line, sampleLine(g, from, to, other, horizontal), threshold))
	}
	return best >= minBarAgreement
}

func sampleLine(g *image.Gray, from, to, at int, horizontal bool) []uint8 {
	out := make([]uint8, 0, to-from)
	for i := from; i < to; i++ {
		if horizontal {
			out = append(out, g.GrayAt(i, at).Y)
		} else {
			out = append(out, g.GrayAt(at, i).Y)
		}
	}
	return out
}

func midLevel(line []uint8) uint8 {
	lo, hi := uint8(255), uint8(0)
	for _, v := range line {
		lo, hi = min(lo, v), max(hi, v)
	}
	return uint8((int(lo) + int(hi)) / 2)
}

func countRuns(line []uint8, threshold uint8) int {
	runs := 1
	for i := 1; i < len(line); i++ {
		if (line[i] < threshold) != (line[i-1] < threshold) {
			runs++
		}
	}
	return runs
}

func agreement(a, b []uint8, threshold uint8) float64 {
	if len(a) == 0 {
		return 0
	}
	same := 0
	for i := range a {
		if (a[i] < threshold) == (b[i] < threshold) {
			same++
		}
	}
	return float64(same) / float64(len(a))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
