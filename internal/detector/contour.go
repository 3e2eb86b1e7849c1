package detector

import "github.com/MeKo-Tech/codescan/internal/utils"

// mooreOffsets is the 8-neighbourhood in clockwise order starting east
// (image coordinates, y pointing down).
var mooreOffsets = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// traceContourMoore returns the outer boundary of a labelled component using
// Moore-neighbour tracing. Points are pixel coordinates in tracing order.
func traceContourMoore(labels []int, w, h int, st compStats) []utils.Point {
	is := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == st.label
	}

	// The first labelled pixel in raster order always lies on the outer
	// boundary, and its west neighbour is background.
	sx, sy := -1, -1
	for y := st.minY; y <= st.maxY && sx < 0; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if is(x, y) {
				sx, sy = x, y
				break
			}
		}
	}
	if sx < 0 {
		return nil
	}

	pts := []utils.Point{{X: float64(sx), Y: float64(sy)}}
	cx, cy := sx, sy
	dir := 4 // direction of the backtrack pixel (west)
	maxSteps := 4*st.count + 8

	for step := 0; step < maxSteps; step++ {
		found := false
		for k := 1; k <= 8; k++ {
			d := (dir + k) % 8
			nx, ny := cx+mooreOffsets[d][0], cy+mooreOffsets[d][1]
			if is(nx, ny) {
				// new backtrack is the neighbour examined just before d,
				// expressed relative to the new current pixel
				prev := (dir + k - 1) % 8
				bx, by := cx+mooreOffsets[prev][0], cy+mooreOffsets[prev][1]
				cx, cy = nx, ny
				dir = directionOf(bx-cx, by-cy)
				found = true
				break
			}
		}
		if !found || (cx == sx && cy == sy) {
			break
		}
		pts = append(pts, utils.Point{X: float64(cx), Y: float64(cy)})
	}
	return pts
}

func directionOf(dx, dy int) int {
	for i, o := range mooreOffsets {
		if o[0] == dx && o[1] == dy {
			return i
		}
	}
	return 4
}
