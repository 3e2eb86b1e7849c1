package barcode

import (
	"context"
	"image"
	"log/slog"
)

// RotatingDecoder decodes a crop at every angle of a sweep.
type RotatingDecoder struct {
	backend Backend
	sweep   Sweep
	opts    Options
}

// NewRotatingDecoder wires a backend to an angle sweep.
func NewRotatingDecoder(backend Backend, sweep Sweep, opts Options) *RotatingDecoder {
	return &RotatingDecoder{backend: backend, sweep: sweep, opts: opts}
}

// Sweep returns the configured angle sweep.
func (d *RotatingDecoder) Sweep() Sweep { return d.sweep }

// Attempt rotates img by angle and decodes it once. Every symbol the backend
// returns is kept. Decode failures produce an empty result, never an error.
func (d *RotatingDecoder) Attempt(ctx context.Context, img image.Image, angle float64) []Result {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	rotated := Rotate(img, angle)
	results, err := d.backend.Decode(ctx, rotated, d.opts)
	if err != nil && !IsNotFound(err) {
		slog.Debug("Decode attempt failed", "angle", angle, "error", err)
	}
	for i := range results {
		results[i].Angle = angle
	}
	return results
}

// Decode runs the full sweep sequentially and returns the union of all
// payloads in angle order, first occurrence wins.
func (d *RotatingDecoder) Decode(ctx context.Context, img image.Image) []Result {
	var out []Result
	seen := map[string]bool{}
	for angle := range d.sweep.All() {
		if ctx.Err() != nil {
			break
		}
		for _, r := range d.Attempt(ctx, img, angle) {
			if r.Value == "" || seen[r.Value] {
				continue
			}
			seen[r.Value] = true
			out = append(out, r)
		}
	}
	return out
}
