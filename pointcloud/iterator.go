package pointcloud

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ProgressInterval is the number of examined candidates between progress reports and
// cancellation checks.
const ProgressInterval = 4096

// CandidateSource is the record stream behind an Iterator. Format adapters implement it with a
// private read handle so that several iterators can run over one file at once.
type CandidateSource interface {
	// Advance moves to the next raw record, returning false once there are no more.
	Advance() (bool, error)
	// Position returns the current record's coordinates in world units.
	Position() (x, y, z float64)
	// Marshal decodes the current record into sample i of buf.
	Marshal(buf *Buffer, i int) error
	// Close releases the read handle.
	Close() error
}

// IteratorState is the lifecycle state of an Iterator.
type IteratorState int

// Iterator states. Exhausted and Failed are terminal.
const (
	IteratorCreated IteratorState = iota
	IteratorInitialized
	IteratorStreaming
	IteratorExhausted
	IteratorFailed
)

func (s IteratorState) String() string {
	switch s {
	case IteratorCreated:
		return "created"
	case IteratorInitialized:
		return "initialized"
	case IteratorStreaming:
		return "streaming"
	case IteratorExhausted:
		return "exhausted"
	case IteratorFailed:
		return "failed"
	}
	return "unknown"
}

// Iterator streams the candidates of a CandidateSource that pass a Filter into caller supplied
// buffers. An Iterator is used by one goroutine at a time.
type Iterator struct {
	src    CandidateSource
	filter *Filter
	schema *Schema
	sink   ProgressSink
	total  int64

	state       IteratorState
	err         error
	sourceDone  bool
	closed      bool
	examined    int64
	accepted    int64
	sinceReport int64
}

// NewIterator binds a source to a filter. total is the expected number of candidates, used for
// progress reporting only. sink may be nil.
func NewIterator(src CandidateSource, filter *Filter, schema *Schema, total int64, sink ProgressSink) *Iterator {
	return &Iterator{
		src:    src,
		filter: filter,
		schema: schema,
		sink:   sink,
		total:  total,
		state:  IteratorInitialized,
	}
}

// Schema returns the channels the iterator produces.
func (it *Iterator) Schema() *Schema {
	return it.schema
}

// State returns the lifecycle state.
func (it *Iterator) State() IteratorState {
	return it.state
}

// Examined returns the number of candidates pulled from the source so far.
func (it *Iterator) Examined() int64 {
	return it.examined
}

// Accepted returns the number of candidates written to buffers so far.
func (it *Iterator) Accepted() int64 {
	return it.accepted
}

// Next fills buf from its first slot with accepted candidates until buf is full or the source
// runs out, sets buf's count and returns it.
//
// Next returns 0 exactly once, when the source is exhausted; later calls fail with
// ErrIteratorExhausted. A source error or cancellation aborts the iteration: the call returns 0
// and the error, and every later call returns the same error.
func (it *Iterator) Next(ctx context.Context, buf *Buffer) (int, error) {
	switch it.state {
	case IteratorExhausted:
		return 0, ErrIteratorExhausted
	case IteratorFailed:
		return 0, it.err
	case IteratorCreated:
		return 0, errors.New("iterator has no source")
	case IteratorInitialized, IteratorStreaming:
	}
	if !buf.Schema().SameNames(it.schema) {
		return 0, errors.Wrapf(ErrChannelMismatch, "buffer schema %s, iterator schema %s", buf.Schema(), it.schema)
	}
	if buf.Capacity() == 0 {
		return 0, errors.New("cannot iterate into an empty buffer")
	}
	it.state = IteratorStreaming

	count := 0
	for count < buf.Capacity() && !it.sourceDone {
		ok, err := it.src.Advance()
		if err != nil {
			return 0, it.fail(err)
		}
		if !ok {
			it.sourceDone = true
			break
		}
		it.examined++
		it.sinceReport++

		if it.filter.Accepts(it.src.Position()) {
			if err := it.src.Marshal(buf, count); err != nil {
				return 0, it.fail(err)
			}
			count++
		}

		if it.sinceReport == ProgressInterval {
			it.sinceReport = 0
			if err := CheckCancelled(ctx, it.sink, ProgressInterval, it.total); err != nil {
				return 0, it.fail(err)
			}
		}
	}

	if err := buf.SetCount(count); err != nil {
		return 0, it.fail(err)
	}
	it.accepted += int64(count)
	if count > 0 {
		return count, nil
	}

	it.state = IteratorExhausted
	if it.sink != nil && it.sinceReport > 0 {
		it.sink.ReportProgress(it.sinceReport, it.total)
		it.sinceReport = 0
	}
	return 0, it.Close()
}

func (it *Iterator) fail(err error) error {
	it.state = IteratorFailed
	it.err = multierr.Combine(err, it.Close())
	return it.err
}

// Close releases the source. It is called automatically at exhaustion or failure and is safe to
// call more than once.
func (it *Iterator) Close() error {
	if it.closed || it.src == nil {
		return nil
	}
	it.closed = true
	return it.src.Close()
}
