package pointcloud

import (
	"github.com/pkg/errors"
)

// Buffer is columnar point storage: one typed array per schema channel, all sharing a capacity
// and a count of valid samples.
//
// A buffer either owns its arrays or is a view (see Window) onto a range of another buffer's
// arrays. Views never own storage and cannot be resized.
type Buffer struct {
	schema  *Schema
	columns []column
	offset  int
	length  int
	count   int
	view    bool
}

// NewBuffer allocates a buffer of the given capacity for schema.
func NewBuffer(schema *Schema, capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	columns := make([]column, schema.Len())
	for i := range columns {
		columns[i] = newColumn(schema.Channel(i).DataType, capacity)
	}
	return &Buffer{schema: schema, columns: columns, length: capacity}
}

// Schema returns the buffer's schema.
func (b *Buffer) Schema() *Schema {
	return b.schema
}

// Capacity returns the number of sample slots.
func (b *Buffer) Capacity() int {
	return b.length
}

// Count returns the number of valid samples.
func (b *Buffer) Count() int {
	return b.count
}

// SetCount sets the number of valid samples.
func (b *Buffer) SetCount(n int) error {
	if n < 0 || n > b.length {
		return errors.Errorf("count %d outside [0, %d]", n, b.length)
	}
	b.count = n
	return nil
}

// IsView reports whether the buffer wraps another buffer's storage.
func (b *Buffer) IsView() bool {
	return b.view
}

// Resize changes the capacity of an owning buffer, keeping the leading samples.
func (b *Buffer) Resize(capacity int) error {
	if b.view {
		return errors.New("cannot resize a buffer view")
	}
	if capacity < 0 {
		return errors.Errorf("invalid capacity %d", capacity)
	}
	for i, col := range b.columns {
		b.columns[i] = col.grow(capacity, b.count)
	}
	b.length = capacity
	b.count = min(b.count, capacity)
	return nil
}

// Window returns a view of `length` samples starting at `offset`. The view shares storage with
// b; writes through either are visible in both. The view's count is the part of b's valid range
// that it covers.
func (b *Buffer) Window(offset, length int) (*Buffer, error) {
	if offset < 0 || length < 0 || offset+length > b.length {
		return nil, errors.Errorf("window [%d, %d) outside buffer of %d samples", offset, offset+length, b.length)
	}
	return &Buffer{
		schema:  b.schema,
		columns: b.columns,
		offset:  b.offset + offset,
		length:  length,
		count:   max(0, min(b.count-offset, length)),
		view:    true,
	}, nil
}

// Column returns the typed samples of channel ch, limited to the buffer's capacity.
func Column[T Number](b *Buffer, ch int) ([]T, error) {
	if ch < 0 || ch >= len(b.columns) {
		return nil, errors.Errorf("channel index %d out of range", ch)
	}
	data, ok := b.columns[ch].raw().([]T)
	if !ok {
		return nil, errors.Errorf("channel %q is %s", b.schema.Channel(ch).Name, b.columns[ch].dataType())
	}
	return data[b.offset : b.offset+b.length], nil
}

// ColumnByName is Column addressed by channel name.
func ColumnByName[T Number](b *Buffer, name string) ([]T, error) {
	ch, ok := b.schema.IndexOf(name)
	if !ok {
		return nil, NewUnknownChannelError(name)
	}
	return Column[T](b, ch)
}

// Float returns sample i of channel ch converted to float64.
func (b *Buffer) Float(ch, i int) float64 {
	return b.columns[ch].float(b.offset + i)
}

// SetFloat stores v into sample i of channel ch with a native cast.
func (b *Buffer) SetFloat(ch, i int, v float64) {
	b.columns[ch].setFloat(b.offset+i, v)
}

// Int returns sample i of channel ch converted to int64.
func (b *Buffer) Int(ch, i int) int64 {
	return b.columns[ch].int(b.offset + i)
}

// SetInt stores v into sample i of channel ch with a native cast.
func (b *Buffer) SetInt(ch, i int, v int64) {
	b.columns[ch].setInt(b.offset+i, v)
}

func (b *Buffer) checkRange(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > b.length {
		return errors.Errorf("range [%d, %d) outside buffer of %d samples", offset, offset+length, b.length)
	}
	return nil
}

func (b *Buffer) extendCount(end int) {
	b.count = max(b.count, end)
}

func checkTransfer(dst *Buffer, dstOffset int, src *Buffer, srcOffset, length int) error {
	if dst.schema.Len() != src.schema.Len() {
		return errors.Wrapf(ErrChannelMismatch, "%d channels vs %d", dst.schema.Len(), src.schema.Len())
	}
	if err := dst.checkRange(dstOffset, length); err != nil {
		return err
	}
	return src.checkRange(srcOffset, length)
}

// Copy moves `length` samples of every channel from src to dst. The datatypes at each channel
// index must be identical. dst and src may be the same buffer (or views onto the same storage)
// with overlapping ranges. dst's count grows to cover the written range.
func Copy(dst *Buffer, dstOffset int, src *Buffer, srcOffset, length int) error {
	if err := checkTransfer(dst, dstOffset, src, srcOffset, length); err != nil {
		return err
	}
	for i := range dst.columns {
		dt, st := dst.columns[i].dataType(), src.columns[i].dataType()
		if dt != st {
			return NewChannelMismatchError(i, dt, st)
		}
	}
	for i := range dst.columns {
		dst.columns[i].copyFrom(dst.offset+dstOffset, src.columns[i], src.offset+srcOffset, length)
	}
	dst.extendCount(dstOffset + length)
	return nil
}

// Convert is Copy with a native numeric cast between datatypes of the same category. Moving
// between integer and floating point channels requires ConvertQuantized.
func Convert(dst *Buffer, dstOffset int, src *Buffer, srcOffset, length int) error {
	if err := checkTransfer(dst, dstOffset, src, srcOffset, length); err != nil {
		return err
	}
	for i := range dst.columns {
		dt, st := dst.columns[i].dataType(), src.columns[i].dataType()
		if dt.IsFloat() != st.IsFloat() {
			return NewChannelMismatchError(i, dt, st)
		}
	}
	for i := range dst.columns {
		if dst.columns[i].dataType() == src.columns[i].dataType() {
			dst.columns[i].copyFrom(dst.offset+dstOffset, src.columns[i], src.offset+srcOffset, length)
			continue
		}
		dst.columns[i].castFrom(dst.offset+dstOffset, src.columns[i], src.offset+srcOffset, length)
	}
	dst.extendCount(dstOffset + length)
	return nil
}

// ConvertQuantized moves samples across the integer/float boundary. Float sources are encoded as
// floor((v - offset) / scale + 0.5); integer sources are decoded as scale * q + offset. Channels
// whose datatypes are in the same category are converted as by Convert.
func ConvertQuantized(dst *Buffer, dstOffset int, src *Buffer, srcOffset int, offset, scale float64, length int) error {
	if err := checkTransfer(dst, dstOffset, src, srcOffset, length); err != nil {
		return err
	}
	if scale == 0 {
		return errors.New("quantization scale must be non-zero")
	}
	for i := range dst.columns {
		dc, sc := dst.columns[i], src.columns[i]
		do, so := dst.offset+dstOffset, src.offset+srcOffset
		switch {
		case dc.dataType() == sc.dataType():
			dc.copyFrom(do, sc, so, length)
		case dc.dataType().IsFloat() == sc.dataType().IsFloat():
			dc.castFrom(do, sc, so, length)
		case sc.dataType().IsFloat():
			dc.quantizeFrom(do, sc, so, length, offset, scale)
		default:
			dc.dequantizeFrom(do, sc, so, length, offset, scale)
		}
	}
	dst.extendCount(dstOffset + length)
	return nil
}
