package pointcloud

import (
	"github.com/pkg/errors"
)

// Error sentinels. Every error returned by this package and by the format adapters wraps one of
// these so callers can branch with errors.Is.
var (
	// ErrDuplicateName is returned when two channels of a schema share a name.
	ErrDuplicateName = errors.New("duplicate channel name")
	// ErrUnknownChannel is returned when a channel name is not part of a schema.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrChannelMismatch is returned when two buffers cannot exchange samples.
	ErrChannelMismatch = errors.New("channel mismatch")
	// ErrFormat is returned for a malformed header or record.
	ErrFormat = errors.New("malformed point data")
	// ErrUnsupportedVersion is returned for a record format or file version that cannot be handled.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrWaveformNotSupported is returned when an input carries full-waveform payload.
	ErrWaveformNotSupported = errors.New("full waveform data not supported")
	// ErrRecordCountOverflow is returned when a writer's point counter cannot hold the total.
	ErrRecordCountOverflow = errors.New("record count overflow")
	// ErrOperationCancelled is returned when a read or write is cancelled.
	ErrOperationCancelled = errors.New("operation cancelled")
	// ErrIO wraps failures of the underlying storage.
	ErrIO = errors.New("i/o error")
	// ErrIteratorExhausted is returned by Iterator.Next after it has already reported exhaustion.
	ErrIteratorExhausted = errors.New("iterator exhausted")
	// ErrNoPointsWritten is returned by Transfer when nothing was accepted.
	ErrNoPointsWritten = errors.New("no points written")
)

// NewDuplicateNameError returns an error for a channel name used twice.
func NewDuplicateNameError(name string) error {
	return errors.Wrapf(ErrDuplicateName, "%q", name)
}

// NewUnknownChannelError returns an error for a channel missing from a schema.
func NewUnknownChannelError(name string) error {
	return errors.Wrapf(ErrUnknownChannel, "%q", name)
}

// NewChannelMismatchError returns an error describing why two channels are incompatible.
func NewChannelMismatchError(index int, dst, src DataType) error {
	return errors.Wrapf(ErrChannelMismatch, "channel %d: cannot move %s samples into %s", index, src, dst)
}

// NewFormatError returns a format error with context.
func NewFormatError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrFormat, format, args...)
}

// NewUnsupportedVersionError returns an unsupported version error with context.
func NewUnsupportedVersionError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsupportedVersion, format, args...)
}

// NewRecordCountOverflowError returns an error for a point total that a counter cannot represent.
func NewRecordCountOverflowError(total uint64, limit uint64) error {
	return errors.Wrapf(ErrRecordCountOverflow, "%d points exceeds the limit of %d", total, limit)
}

type ioError struct {
	op  string
	err error
}

func (e *ioError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *ioError) Unwrap() error {
	return e.err
}

// Is matches ErrIO as well as anything the storage error matches.
func (e *ioError) Is(target error) bool {
	return target == ErrIO
}

// NewIOError wraps a storage failure. The result matches both ErrIO and `err`.
func NewIOError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &ioError{op: op, err: err}
}
