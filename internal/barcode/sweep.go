package barcode

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Sweep names.
const (
	SweepCoarse = "coarse"
	SweepFine   = "fine"
)

// DefaultFineStep is the fine sweep granularity in degrees.
const DefaultFineStep = 10

// Sweep is a bounded, restartable sequence of rotation angles in degrees,
// starting at 0 and stepping by Step up to (but excluding) 360.
type Sweep struct {
	Name string
	Step float64
}

// CoarseSweep tries the four quarter turns.
func CoarseSweep() Sweep { return Sweep{Name: SweepCoarse, Step: 90} }

// FineSweep tries every step degrees.
func FineSweep(step float64) Sweep {
	if step <= 0 {
		step = DefaultFineStep
	}
	return Sweep{Name: SweepFine, Step: step}
}

// ParseSweep resolves a sweep name. fineStep applies to the fine sweep only.
func ParseSweep(name string, fineStep float64) (Sweep, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SweepCoarse:
		return CoarseSweep(), nil
	case SweepFine:
		return FineSweep(fineStep), nil
	default:
		return Sweep{}, fmt.Errorf("unknown angle sweep %q (want %s or %s)", name, SweepCoarse, SweepFine)
	}
}

// All yields every angle of the sweep. Each call starts a fresh sequence.
func (s Sweep) All() iter.Seq[float64] {
	step := s.Step
	if step <= 0 {
		step = 90
	}
	return func(yield func(float64) bool) {
		for i := 0; ; i++ {
			a := float64(i) * step
			if a >= 360-1e-9 {
				return
			}
			if !yield(a) {
				return
			}
		}
	}
}

// Angles collects the sweep into a slice.
func (s Sweep) Angles() []float64 { return slices.Collect(s.All()) }

func (s Sweep) String() string {
	if s.Name == SweepFine {
		return fmt.Sprintf("%s/%g", s.Name, s.Step)
	}
	return s.Name
}
