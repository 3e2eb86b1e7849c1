package detector

import (
	"cmp"
	"image"
	"log/slog"
	"slices"

	"github.com/MeKo-Tech/codescan/internal/utils"
)

// Config controls region location.
type Config struct {
	// CloseKernel merges horizontally adjacent bars into one blob.
	CloseKernel Kernel
	// OpenPass enables a second, smaller opening to split over-merged codes.
	OpenPass   bool
	OpenKernel Kernel
	// Components with a bounding box narrower or shorter than this are noise.
	MinWidth  int
	MinHeight int
}

// DefaultConfig returns the default locator configuration.
func DefaultConfig() Config {
	return Config{
		CloseKernel: Kernel{Width: 9, Height: 3},
		OpenKernel:  Kernel{Width: 3, Height: 1},
		MinWidth:    20,
		MinHeight:   15,
	}
}

// Region is a candidate code location within the source frame.
type Region struct {
	Bounds image.Rectangle
	// Area is the foreground pixel count of the blob after morphology.
	Area int
}

// Locate finds candidate code regions in a binary mask. Regions are ordered
// left to right, ties broken top to bottom. Coordinates lie within the mask.
func Locate(m *Mask, cfg Config) []Region {
	if m == nil || m.W == 0 || m.H == 0 {
		return nil
	}

	morph := Close(m, cfg.CloseKernel)
	if cfg.OpenPass {
		morph = Open(morph, cfg.OpenKernel)
	}

	comps, _ := connectedComponents(morph)
	kept := make([]compStats, 0, len(comps))
	for _, c := range comps {
		b := c.bounds()
		if b.Dx() < cfg.MinWidth || b.Dy() < cfg.MinHeight {
			continue
		}
		kept = append(kept, c)
	}
	kept = dropNested(kept)

	regions := make([]Region, 0, len(kept))
	for _, c := range kept {
		regions = append(regions, Region{Bounds: c.bounds(), Area: c.count})
	}
	slices.SortStableFunc(regions, func(a, b Region) int {
		if c := cmp.Compare(a.Bounds.Min.X, b.Bounds.Min.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Bounds.Min.Y, b.Bounds.Min.Y)
	})

	slog.Debug("Located candidate regions", "components", len(comps), "regions", len(regions))
	return regions
}

// LargestContour returns the outer boundary of the largest foreground blob
// after closing with k, or nil when the mask is empty.
func LargestContour(m *Mask, k Kernel) []utils.Point {
	if m == nil || m.W == 0 || m.H == 0 {
		return nil
	}
	morph := Close(m, k)
	comps, labels := connectedComponents(morph)
	if len(comps) == 0 {
		return nil
	}
	best := comps[0]
	for _, c := range comps[1:] {
		if c.count > best.count {
			best = c
		}
	}
	return traceContourMoore(labels, morph.W, morph.H, best)
}
