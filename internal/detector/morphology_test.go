package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func maskFromRows(rows ...string) *Mask {
	m := NewMask(len(rows[0]), len(rows))
	for y, r := range rows {
		for x, ch := range r {
			m.Pix[y*m.W+x] = ch == '#'
		}
	}
	return m
}

func (m *Mask) rows() []string {
	out := make([]string, m.H)
	for y := 0; y < m.H; y++ {
		b := make([]byte, m.W)
		for x := 0; x < m.W; x++ {
			if m.At(x, y) {
				b[x] = '#'
			} else {
				b[x] = '.'
			}
		}
		out[y] = string(b)
	}
	return out
}

func TestCloseBridgesNarrowGaps(t *testing.T) {
	m := maskFromRows(
		"............",
		"..#.#...#...",
		"..#.#...#...",
		"............",
	)
	out := Close(m, Kernel{Width: 3, Height: 1})
	assert.Equal(t, []string{
		"............",
		"..###...#...",
		"..###...#...",
		"............",
	}, out.rows())
}

func TestOpenRemovesSpecks(t *testing.T) {
	m := maskFromRows(
		"#.....",
		"..###.",
		"..###.",
		"..###.",
	)
	out := Open(m, Kernel{Width: 3, Height: 3})
	assert.Equal(t, []string{
		"......",
		"..###.",
		"..###.",
		"..###.",
	}, out.rows())
}

func TestApplyMorphologicalOperation(t *testing.T) {
	m := maskFromRows(
		".....",
		"..#..",
		".....",
	)

	t.Run("none returns copy", func(t *testing.T) {
		out := ApplyMorphologicalOperation(m, MorphConfig{Operation: MorphNone})
		assert.Equal(t, m.rows(), out.rows())
		out.Pix[0] = true
		assert.False(t, m.Pix[0])
	})

	t.Run("dilate", func(t *testing.T) {
		out := ApplyMorphologicalOperation(m, MorphConfig{Operation: MorphDilate, Kernel: Kernel{3, 3}, Iterations: 1})
		assert.Equal(t, []string{".###.", ".###.", ".###."}, out.rows())
	})

	t.Run("erode", func(t *testing.T) {
		out := ApplyMorphologicalOperation(m, MorphConfig{Operation: MorphErode, Kernel: Kernel{3, 1}, Iterations: 1})
		assert.Zero(t, out.Count())
	})

	t.Run("borders do not erode", func(t *testing.T) {
		full := maskFromRows("###", "###")
		out := ApplyMorphologicalOperation(full, MorphConfig{Operation: MorphErode, Kernel: Kernel{3, 3}, Iterations: 2})
		assert.Equal(t, 6, out.Count())
	})
}
