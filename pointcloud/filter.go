package pointcloud

import (
	"github.com/pkg/errors"
)

// Filter decides which candidate points an iteration keeps: a point must lie inside Bounds and
// then pass a fixed-step rate limiter that keeps Fraction of the in-bounds candidates.
//
// The accumulator lives for the whole iteration and is never reset, so the kept rate converges
// to Fraction for any candidate order and the same candidate sequence always yields the same
// selection.
type Filter struct {
	bounds      Bounds
	fraction    float64
	accumulator float64
}

// NewFilter returns a filter with a zero accumulator. fraction must be in (0, 1].
func NewFilter(bounds Bounds, fraction float64) (*Filter, error) {
	if !(fraction > 0 && fraction <= 1) {
		return nil, errors.Errorf("fraction %g not in (0, 1]", fraction)
	}
	return &Filter{bounds: bounds, fraction: fraction}, nil
}

// Accepts tests one candidate and advances the accumulator when it is in bounds.
func (f *Filter) Accepts(x, y, z float64) bool {
	if !f.bounds.Contains(x, y, z) {
		return false
	}
	f.accumulator += f.fraction
	// A fraction of 1 must accept every candidate, so equality counts.
	if f.accumulator >= 1 {
		f.accumulator--
		return true
	}
	return false
}

// Bounds returns the filter's box.
func (f *Filter) Bounds() Bounds {
	return f.bounds
}

// Fraction returns the keep fraction.
func (f *Filter) Fraction() float64 {
	return f.fraction
}

// Accumulator returns the current accumulator value.
func (f *Filter) Accumulator() float64 {
	return f.accumulator
}
