package pointcloud

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r3"
)

// unboundedAxis is the interval with Lo=+Inf and Hi=-Inf. As a filter it places no constraint on
// its axis; as an accumulator it is empty.
var unboundedAxis = r1.Interval{Lo: math.Inf(1), Hi: math.Inf(-1)}

// Bounds is an axis-aligned box.
type Bounds struct {
	X, Y, Z r1.Interval
}

// EmptyBounds returns the canonical empty box. It contains nothing when used to accumulate and
// constrains nothing when used to filter.
func EmptyBounds() Bounds {
	return Bounds{unboundedAxis, unboundedAxis, unboundedAxis}
}

// HugeBounds returns the box covering all of space.
func HugeBounds() Bounds {
	huge := r1.Interval{Lo: math.Inf(-1), Hi: math.Inf(1)}
	return Bounds{huge, huge, huge}
}

// NewBounds returns the box with the given corners.
func NewBounds(minX, maxX, minY, maxY, minZ, maxZ float64) Bounds {
	return Bounds{
		X: r1.Interval{Lo: minX, Hi: maxX},
		Y: r1.Interval{Lo: minY, Hi: maxY},
		Z: r1.Interval{Lo: minZ, Hi: maxZ},
	}
}

func isUnbounded(axis r1.Interval) bool {
	return math.IsInf(axis.Lo, 1) && math.IsInf(axis.Hi, -1)
}

func axisContains(axis r1.Interval, v float64) bool {
	return isUnbounded(axis) || axis.Contains(v)
}

// Contains reports whether the point lies inside the box, edges included. An axis set to the
// empty sentinel accepts any value.
func (b Bounds) Contains(x, y, z float64) bool {
	return axisContains(b.X, x) && axisContains(b.Y, y) && axisContains(b.Z, z)
}

// IsEmpty reports whether every axis is the empty sentinel.
func (b Bounds) IsEmpty() bool {
	return isUnbounded(b.X) && isUnbounded(b.Y) && isUnbounded(b.Z)
}

// Grow returns the box extended to contain the point.
func (b Bounds) Grow(x, y, z float64) Bounds {
	return Bounds{b.X.AddPoint(x), b.Y.AddPoint(y), b.Z.AddPoint(z)}
}

// Union returns the smallest box containing both boxes.
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{b.X.Union(other.X), b.Y.Union(other.Y), b.Z.Union(other.Z)}
}

// Min returns the low corner.
func (b Bounds) Min() r3.Vector {
	return r3.Vector{X: b.X.Lo, Y: b.Y.Lo, Z: b.Z.Lo}
}

// Max returns the high corner.
func (b Bounds) Max() r3.Vector {
	return r3.Vector{X: b.X.Hi, Y: b.Y.Hi, Z: b.Z.Hi}
}

// Equal reports exact equality of all six limits.
func (b Bounds) Equal(other Bounds) bool {
	return b == other
}

// ApproxEqual reports whether every limit is within tol of the other box's.
func (b Bounds) ApproxEqual(other Bounds, tol float64) bool {
	near := func(a, c float64) bool { return a == c || math.Abs(a-c) <= tol }
	return near(b.X.Lo, other.X.Lo) && near(b.X.Hi, other.X.Hi) &&
		near(b.Y.Lo, other.Y.Lo) && near(b.Y.Hi, other.Y.Hi) &&
		near(b.Z.Lo, other.Z.Lo) && near(b.Z.Hi, other.Z.Hi)
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g %g] x [%g %g] x [%g %g]", b.X.Lo, b.X.Hi, b.Y.Lo, b.Y.Hi, b.Z.Lo, b.Z.Hi)
}

// Quantization is a per-axis fixed point grid: stored = floor((v - Offset) / Scale + 0.5).
type Quantization struct {
	Scale  r3.Vector
	Offset r3.Vector
}

// Encode quantizes a point onto the grid.
func (q Quantization) Encode(p r3.Vector) (x, y, z int32) {
	return Quantize[int32](p.X, q.Offset.X, q.Scale.X),
		Quantize[int32](p.Y, q.Offset.Y, q.Scale.Y),
		Quantize[int32](p.Z, q.Offset.Z, q.Scale.Z)
}

// Decode maps grid coordinates back to a point.
func (q Quantization) Decode(x, y, z int32) r3.Vector {
	return r3.Vector{
		X: Dequantize(x, q.Offset.X, q.Scale.X),
		Y: Dequantize(y, q.Offset.Y, q.Scale.Y),
		Z: Dequantize(z, q.Offset.Z, q.Scale.Z),
	}
}

// IsZero reports whether no grid is set.
func (q Quantization) IsZero() bool {
	return q.Scale == (r3.Vector{})
}
