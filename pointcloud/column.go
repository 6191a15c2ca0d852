package pointcloud

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Number is any sample type a channel can store.
type Number interface {
	constraints.Integer | constraints.Float
}

// column is the backing array of one channel.
type column interface {
	dataType() DataType
	len() int
	raw() any
	// grow returns a column of length n holding the first min(n, keep) samples.
	grow(n, keep int) column
	copyFrom(dstOff int, src column, srcOff, n int)
	castFrom(dstOff int, src column, srcOff, n int) bool
	quantizeFrom(dstOff int, src column, srcOff, n int, offset, scale float64) bool
	dequantizeFrom(dstOff int, src column, srcOff, n int, offset, scale float64) bool
	float(i int) float64
	setFloat(i int, v float64)
	int(i int) int64
	setInt(i int, v int64)
}

type typedColumn[T Number] struct {
	dt   DataType
	data []T
}

func newColumn(dt DataType, n int) column {
	switch dt {
	case Uint8:
		return &typedColumn[uint8]{dt, make([]uint8, n)}
	case Sint8:
		return &typedColumn[int8]{dt, make([]int8, n)}
	case Uint16:
		return &typedColumn[uint16]{dt, make([]uint16, n)}
	case Sint16:
		return &typedColumn[int16]{dt, make([]int16, n)}
	case Uint32:
		return &typedColumn[uint32]{dt, make([]uint32, n)}
	case Sint32:
		return &typedColumn[int32]{dt, make([]int32, n)}
	case Uint64:
		return &typedColumn[uint64]{dt, make([]uint64, n)}
	case Sint64:
		return &typedColumn[int64]{dt, make([]int64, n)}
	case Float32:
		return &typedColumn[float32]{dt, make([]float32, n)}
	case Float64:
		return &typedColumn[float64]{dt, make([]float64, n)}
	default:
		return nil
	}
}

func (c *typedColumn[T]) dataType() DataType { return c.dt }
func (c *typedColumn[T]) len() int           { return len(c.data) }
func (c *typedColumn[T]) raw() any           { return c.data }

func (c *typedColumn[T]) grow(n, keep int) column {
	data := make([]T, n)
	copy(data, c.data[:min(keep, len(c.data))])
	return &typedColumn[T]{c.dt, data}
}

// copyFrom has memmove semantics: src may be c itself with overlapping ranges.
func (c *typedColumn[T]) copyFrom(dstOff int, src column, srcOff, n int) {
	s := src.(*typedColumn[T])
	copy(c.data[dstOff:dstOff+n], s.data[srcOff:srcOff+n])
}

func (c *typedColumn[T]) castFrom(dstOff int, src column, srcOff, n int) bool {
	dst := c.data[dstOff : dstOff+n]
	switch s := src.(type) {
	case *typedColumn[uint8]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[int8]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[uint16]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[int16]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[uint32]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[int32]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[uint64]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[int64]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[float32]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	case *typedColumn[float64]:
		castSlice(dst, s.data[srcOff:srcOff+n])
	default:
		return false
	}
	return true
}

func (c *typedColumn[T]) quantizeFrom(dstOff int, src column, srcOff, n int, offset, scale float64) bool {
	dst := c.data[dstOff : dstOff+n]
	switch s := src.(type) {
	case *typedColumn[float32]:
		QuantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[float64]:
		QuantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	default:
		return false
	}
	return true
}

func (c *typedColumn[T]) dequantizeFrom(dstOff int, src column, srcOff, n int, offset, scale float64) bool {
	dst := c.data[dstOff : dstOff+n]
	switch s := src.(type) {
	case *typedColumn[uint8]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[int8]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[uint16]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[int16]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[uint32]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[int32]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[uint64]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	case *typedColumn[int64]:
		DequantizeSlice(dst, s.data[srcOff:srcOff+n], offset, scale)
	default:
		return false
	}
	return true
}

func (c *typedColumn[T]) float(i int) float64       { return float64(c.data[i]) }
func (c *typedColumn[T]) setFloat(i int, v float64) { c.data[i] = T(v) }
func (c *typedColumn[T]) int(i int) int64           { return int64(c.data[i]) }
func (c *typedColumn[T]) setInt(i int, v int64)     { c.data[i] = T(v) }

func castSlice[D, S Number](dst []D, src []S) {
	for i := range dst {
		dst[i] = D(src[i])
	}
}

// Quantize encodes a floating point value onto the integer grid defined by offset and scale,
// rounding half up: floor((v - offset) / scale + 0.5).
func Quantize[I constraints.Integer](v, offset, scale float64) I {
	return I(math.Floor((v-offset)/scale + 0.5))
}

// Dequantize decodes a quantized integer: scale * q + offset.
func Dequantize[I constraints.Integer](q I, offset, scale float64) float64 {
	return scale*float64(q) + offset
}

// QuantizeSlice applies Quantize element-wise. The integer destination may be any Number.
func QuantizeSlice[D Number, S constraints.Float](dst []D, src []S, offset, scale float64) {
	for i := range dst {
		dst[i] = D(math.Floor((float64(src[i])-offset)/scale + 0.5))
	}
}

// DequantizeSlice applies Dequantize element-wise.
func DequantizeSlice[D Number, S constraints.Integer](dst []D, src []S, offset, scale float64) {
	for i := range dst {
		dst[i] = D(scale*float64(src[i]) + offset)
	}
}
