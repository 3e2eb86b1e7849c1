package detector

import "image"

// compStats represents statistics for a connected component.
type compStats struct {
	label int
	count int
	minX  int
	minY  int
	maxX  int
	maxY  int
}

func (c compStats) bounds() image.Rectangle {
	return image.Rect(c.minX, c.minY, c.maxX+1, c.maxY+1)
}

// neighbours8 lists the 8-connected offsets.
var neighbours8 = [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}

// connectedComponents labels 8-connected foreground components in raster
// order. labels[i] is 0 for background, otherwise the component's label
// (starting at 1, equal to its index in comps plus one).
func connectedComponents(m *Mask) ([]compStats, []int) {
	labels := make([]int, m.W*m.H)
	var comps []compStats
	queue := make([]int, 0, 256)

	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			idx := y*m.W + x
			if !m.Pix[idx] || labels[idx] != 0 {
				continue
			}
			label := len(comps) + 1
			st := compStats{label: label, minX: x, minY: y, maxX: x, maxY: y}

			queue = append(queue[:0], idx)
			labels[idx] = label
			for head := 0; head < len(queue); head++ {
				ci := queue[head]
				cx, cy := ci%m.W, ci/m.W
				updateComponentStats(&st, cx, cy)
				for _, d := range neighbours8 {
					nx, ny := cx+d[0], cy+d[1]
					if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
						continue
					}
					ni := ny*m.W + nx
					if m.Pix[ni] && labels[ni] == 0 {
						labels[ni] = label
						queue = append(queue, ni)
					}
				}
			}
			comps = append(comps, st)
		}
	}
	return comps, labels
}

// updateComponentStats updates the component statistics with a new pixel.
func updateComponentStats(st *compStats, cx, cy int) {
	st.count++
	st.minX = min(st.minX, cx)
	st.minY = min(st.minY, cy)
	st.maxX = max(st.maxX, cx)
	st.maxY = max(st.maxY, cy)
}

// dropNested removes components whose bounding box lies inside the bounding
// box of a larger component, leaving only outermost blobs.
func dropNested(comps []compStats) []compStats {
	out := make([]compStats, 0, len(comps))
	for i, c := range comps {
		cb := c.bounds()
		nested := false
		for j, o := range comps {
			if i == j {
				continue
			}
			ob := o.bounds()
			if cb.In(ob) && (cb != ob || o.count > c.count || (o.count == c.count && j < i)) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, c)
		}
	}
	return out
}
