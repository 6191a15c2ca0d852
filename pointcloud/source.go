package pointcloud

import (
	"context"
)

// PointSource describes a point cloud. Every accessor returns a value fixed when the source was
// opened, so they may be called concurrently without synchronization.
type PointSource interface {
	Schema() *Schema
	NumPoints() int64
	Bounds() Bounds
	// Quantization returns the source's fixed point grid, if it has one.
	Quantization() (Quantization, bool)
	// CRS returns the coordinate reference system as WKT, or "" when unknown.
	CRS() string
	Metadata() *Metadata
}

// PointReader is a PointSource backed by storage that can be streamed with any number of
// concurrent iterators.
type PointReader interface {
	PointSource
	// ClassNames returns the classification names indexed by class number.
	ClassNames() []string
	// NewIterator returns an iterator over the points inside bounds, thinned to fraction,
	// producing the channels of schema. A nil schema means the reader's full schema.
	NewIterator(bounds Bounds, fraction float64, schema *Schema, sink ProgressSink) (*Iterator, error)
	Close() error
}

// PointWriter is the write side of a format adapter. One session is
// WriteBegin, any number of WritePoints, then WriteEnd. A writer is not safe for concurrent use.
type PointWriter interface {
	// WriteBegin fixes the output layout from the source's schema and properties.
	WriteBegin(ctx context.Context, src PointSource) error
	// WritePoints appends the first count samples of buf.
	WritePoints(ctx context.Context, buf *Buffer, count int, sink ProgressSink) error
	// WriteEnd finalizes the output. Passing 0 and EmptyBounds() marks the session as failed and
	// removes the partial output.
	WriteEnd(totalCount int64, tightBounds Bounds) error
}

// SourceInfo is a PointSource for points that do not come from a file.
type SourceInfo struct {
	PointSchema   *Schema
	Count         int64
	Extent        Bounds
	Grid          *Quantization
	WKT           string
	PointMetadata *Metadata
}

// Schema implements PointSource.
func (s *SourceInfo) Schema() *Schema { return s.PointSchema }

// NumPoints implements PointSource.
func (s *SourceInfo) NumPoints() int64 { return s.Count }

// Bounds implements PointSource.
func (s *SourceInfo) Bounds() Bounds { return s.Extent }

// Quantization implements PointSource.
func (s *SourceInfo) Quantization() (Quantization, bool) {
	if s.Grid == nil {
		return Quantization{}, false
	}
	return *s.Grid, true
}

// CRS implements PointSource.
func (s *SourceInfo) CRS() string { return s.WKT }

// Metadata implements PointSource.
func (s *SourceInfo) Metadata() *Metadata {
	if s.PointMetadata == nil {
		return NewMetadata()
	}
	return s.PointMetadata
}
