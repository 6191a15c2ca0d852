package pointcloud

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// memorySource serves points from a slice. failAt, if positive, makes Advance fail on that record.
type memorySource struct {
	points []r3.Vector
	pos    int
	failAt int
	closed int
}

func (s *memorySource) Advance() (bool, error) {
	if s.pos >= len(s.points) {
		return false, nil
	}
	s.pos++
	if s.failAt > 0 && s.pos == s.failAt {
		return false, NewFormatError("short record %d", s.pos)
	}
	return true, nil
}

func (s *memorySource) Position() (float64, float64, float64) {
	p := s.points[s.pos-1]
	return p.X, p.Y, p.Z
}

func (s *memorySource) Marshal(buf *Buffer, i int) error {
	p := s.points[s.pos-1]
	for ch, c := range buf.Schema().Channels() {
		switch c.Name {
		case ChannelX:
			buf.SetFloat(ch, i, p.X)
		case ChannelY:
			buf.SetFloat(ch, i, p.Y)
		case ChannelZ:
			buf.SetFloat(ch, i, p.Z)
		case ChannelIntensity:
			buf.SetInt(ch, i, int64(s.pos-1))
		}
	}
	return nil
}

func (s *memorySource) Close() error {
	s.closed++
	return nil
}

func linePoints(n int) []r3.Vector {
	points := make([]r3.Vector, n)
	for i := range points {
		points[i] = r3.Vector{X: float64(i), Y: float64(i % 10), Z: -float64(i)}
	}
	return points
}

var memorySchema = MustSchema(
	NewChannel(ChannelX, Float64, 0, 0),
	NewChannel(ChannelY, Float64, 0, 0),
	NewChannel(ChannelZ, Float64, 0, 0),
	NewChannel(ChannelIntensity, Uint16, 0, 0),
)

// memoryReader is a PointReader over a slice.
type memoryReader struct {
	points []r3.Vector
	opened int
}

func (r *memoryReader) Schema() *Schema                    { return memorySchema }
func (r *memoryReader) NumPoints() int64                   { return int64(len(r.points)) }
func (r *memoryReader) Quantization() (Quantization, bool) { return Quantization{}, false }
func (r *memoryReader) CRS() string                        { return "" }
func (r *memoryReader) Metadata() *Metadata                { return NewMetadata() }
func (r *memoryReader) ClassNames() []string               { return nil }
func (r *memoryReader) Close() error                       { return nil }

func (r *memoryReader) Bounds() Bounds {
	b := EmptyBounds()
	for _, p := range r.points {
		b = b.Grow(p.X, p.Y, p.Z)
	}
	return b
}

func (r *memoryReader) NewIterator(bounds Bounds, fraction float64, schema *Schema, sink ProgressSink) (*Iterator, error) {
	filter, err := NewFilter(bounds, fraction)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		schema = memorySchema
	}
	r.opened++
	return NewIterator(&memorySource{points: r.points}, filter, schema, int64(len(r.points)), sink), nil
}

// memoryWriter records what a PointWriter session received.
type memoryWriter struct {
	begun     bool
	failBegin bool
	failAfter int
	received  []float64
	ended     bool
	removed   bool
	total     int64
	bounds    Bounds
}

func (w *memoryWriter) WriteBegin(ctx context.Context, src PointSource) error {
	if w.failBegin {
		return errors.New("cannot begin")
	}
	w.begun = true
	return nil
}

func (w *memoryWriter) WritePoints(ctx context.Context, buf *Buffer, count int, sink ProgressSink) error {
	xi, _ := buf.Schema().IndexOf(ChannelX)
	for i := 0; i < count; i++ {
		if w.failAfter > 0 && len(w.received) == w.failAfter {
			return NewIOError(errors.New("disk full"), "write")
		}
		w.received = append(w.received, buf.Float(xi, i))
	}
	return nil
}

func (w *memoryWriter) WriteEnd(totalCount int64, tightBounds Bounds) error {
	w.ended = true
	if totalCount == 0 && tightBounds.IsEmpty() {
		w.removed = true
		return nil
	}
	w.total = totalCount
	w.bounds = tightBounds
	return nil
}
