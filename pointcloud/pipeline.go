package pointcloud

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/lascodec/logging"
)

// DefaultChunkSize is the buffer capacity used by Transfer when none is given.
const DefaultChunkSize = 64 * 1024

// TransferOptions selects what Transfer copies.
type TransferOptions struct {
	// Bounds limits the copied points. The zero value is replaced by EmptyBounds(), which places
	// no constraint.
	Bounds *Bounds
	// Fraction of the in-bounds points to keep. Zero means 1.
	Fraction float64
	// Schema selects channels. Nil means the source's schema.
	Schema    *Schema
	ChunkSize int
	Sink      ProgressSink
	Logger    logging.Logger
}

// transferSource reports the source's properties with a narrowed schema.
type transferSource struct {
	PointSource
	schema *Schema
}

func (s transferSource) Schema() *Schema {
	return s.schema
}

// cancelSink forwards cancellation and drops progress reports.
type cancelSink struct {
	ProgressSink
}

func (cancelSink) ReportProgress(delta, total int64) {}

// Transfer streams the points of src selected by opts into dst and returns the number written.
// On any failure, or when nothing was selected, the writer is ended with EmptyBounds() so its
// partial output is removed.
func Transfer(ctx context.Context, src PointReader, dst PointWriter, opts TransferOptions) (total int64, err error) {
	logger := logging.OrGlobal(opts.Logger)
	bounds := EmptyBounds()
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	}
	fraction := opts.Fraction
	if fraction == 0 {
		fraction = 1
	}
	schema := opts.Schema
	if schema == nil {
		schema = src.Schema()
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	xi, okX := schema.IndexOf(ChannelX)
	yi, okY := schema.IndexOf(ChannelY)
	zi, okZ := schema.IndexOf(ChannelZ)
	if !okX || !okY || !okZ {
		return 0, errors.Wrap(ErrUnknownChannel, "transfer needs X, Y and Z")
	}

	it, err := src.NewIterator(bounds, fraction, schema, opts.Sink)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Combine(err, it.Close())
	}()

	if err := dst.WriteBegin(ctx, transferSource{src, schema}); err != nil {
		return 0, multierr.Combine(err, dst.WriteEnd(0, EmptyBounds()))
	}

	// The iterator reports progress over the source; the writer only watches for cancellation.
	var writeSink ProgressSink
	if opts.Sink != nil {
		writeSink = cancelSink{opts.Sink}
	}
	buf := NewBuffer(schema, chunk)
	tight := EmptyBounds()
	for {
		n, err := it.Next(ctx, buf)
		if err != nil {
			return 0, multierr.Combine(err, dst.WriteEnd(0, EmptyBounds()))
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			tight = tight.Grow(buf.Float(xi, i), buf.Float(yi, i), buf.Float(zi, i))
		}
		if err := dst.WritePoints(ctx, buf, n, writeSink); err != nil {
			return 0, multierr.Combine(err, dst.WriteEnd(0, EmptyBounds()))
		}
		total += int64(n)
	}

	if total == 0 {
		logger.Warnw("no points selected", "bounds", bounds.String(), "fraction", fraction)
		return 0, multierr.Combine(ErrNoPointsWritten, dst.WriteEnd(0, EmptyBounds()))
	}
	if err := dst.WriteEnd(total, tight); err != nil {
		return 0, err
	}
	logger.Debugw("transfer complete", "points", total, "examined", it.Examined())
	return total, nil
}

// SampleUniform reads every point of src inside bounds and returns a buffer of at most n points
// that is an approximately uniform sample of them.
func SampleUniform(ctx context.Context, src PointReader, bounds Bounds, n int, schema *Schema, sink ProgressSink) (*Buffer, error) {
	if n <= 0 {
		return nil, errors.Errorf("invalid sample size %d", n)
	}
	if schema == nil {
		schema = src.Schema()
	}
	it, err := src.NewIterator(bounds, 1, schema, sink)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(it.Close)

	sample := NewBuffer(schema, n)
	chunk := NewBuffer(schema, n)
	var seen int64
	for {
		got, err := it.Next(ctx, chunk)
		if err != nil {
			return nil, err
		}
		if got == 0 {
			return sample, nil
		}
		if err := Merge(sample, seen, chunk, int64(got)); err != nil {
			return nil, err
		}
		seen += int64(got)
	}
}
