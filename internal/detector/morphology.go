package detector

// MorphologicalOp represents the type of morphological operation to perform.
type MorphologicalOp int

const (
	MorphNone MorphologicalOp = iota
	MorphDilate
	MorphErode
	MorphOpening // Erode then Dilate - removes small noise
	MorphClosing // Dilate then Erode - fills gaps
)

// Kernel is a rectangular structuring element anchored at its center.
type Kernel struct {
	Width  int
	Height int
}

// MorphConfig holds configuration for morphological operations.
type MorphConfig struct {
	Operation  MorphologicalOp
	Kernel     Kernel
	Iterations int
}

// ApplyMorphologicalOperation applies a morphological operation to a mask and
// returns a new mask. The input is left untouched.
func ApplyMorphologicalOperation(m *Mask, config MorphConfig) *Mask {
	k := config.Kernel
	if config.Operation == MorphNone || k.Width <= 0 || k.Height <= 0 || config.Iterations <= 0 {
		return m.Clone()
	}

	result := m.Clone()
	for i := 0; i < config.Iterations; i++ {
		switch config.Operation {
		case MorphDilate:
			result = dilate(result, k)
		case MorphErode:
			result = erode(result, k)
		case MorphOpening:
			result = dilate(erode(result, k), k)
		case MorphClosing:
			result = erode(dilate(result, k), k)
		}
	}
	return result
}

// Close bridges gaps narrower than the kernel.
func Close(m *Mask, k Kernel) *Mask {
	return ApplyMorphologicalOperation(m, MorphConfig{Operation: MorphClosing, Kernel: k, Iterations: 1})
}

// Open removes foreground specks smaller than the kernel.
func Open(m *Mask, k Kernel) *Mask {
	return ApplyMorphologicalOperation(m, MorphConfig{Operation: MorphOpening, Kernel: k, Iterations: 1})
}

// A rectangular element is separable, so each pass runs a 1-D window along
// rows and then along columns using prefix counts. Pixels outside the mask
// are ignored, so borders neither grow nor erode foreground.

func dilate(m *Mask, k Kernel) *Mask {
	return passY(passX(m, k.Width, false), k.Height, false)
}

func erode(m *Mask, k Kernel) *Mask {
	return passY(passX(m, k.Width, true), k.Height, true)
}

func passX(m *Mask, size int, all bool) *Mask {
	if size <= 1 {
		return m
	}
	out := NewMask(m.W, m.H)
	prefix := make([]int, m.W+1)
	before := size / 2
	after := size - 1 - before
	for y := 0; y < m.H; y++ {
		row := m.Pix[y*m.W : (y+1)*m.W]
		for x, v := range row {
			prefix[x+1] = prefix[x]
			if v {
				prefix[x+1]++
			}
		}
		for x := 0; x < m.W; x++ {
			lo := max(0, x-before)
			hi := min(m.W-1, x+after)
			n := prefix[hi+1] - prefix[lo]
			if all {
				out.Pix[y*m.W+x] = n == hi-lo+1
			} else {
				out.Pix[y*m.W+x] = n > 0
			}
		}
	}
	return out
}

func passY(m *Mask, size int, all bool) *Mask {
	if size <= 1 {
		return m
	}
	out := NewMask(m.W, m.H)
	prefix := make([]int, m.H+1)
	before := size / 2
	after := size - 1 - before
	for x := 0; x < m.W; x++ {
		for y := 0; y < m.H; y++ {
			prefix[y+1] = prefix[y]
			if m.Pix[y*m.W+x] {
				prefix[y+1]++
			}
		}
		for y := 0; y < m.H; y++ {
			lo := max(0, y-before)
			hi := min(m.H-1, y+after)
			n := prefix[hi+1] - prefix[lo]
			if all {
				out.Pix[y*m.W+x] = n == hi-lo+1
			} else {
				out.Pix[y*m.W+x] = n > 0
			}
		}
	}
	return out
}
