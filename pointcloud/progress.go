package pointcloud

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ProgressSink receives progress from long running reads and writes and tells them whether to
// stop. Implementations must be safe for use from the goroutine running the operation while
// another goroutine cancels.
type ProgressSink interface {
	// ReportProgress adds `delta` completed points out of `total` expected.
	ReportProgress(delta, total int64)
	// Cancelled is polled at every progress report.
	Cancelled() bool
}

// Progress is the stock ProgressSink.
type Progress struct {
	completed *atomic.Int64
	total     *atomic.Int64
	cancelled *atomic.Bool
	onUpdate  func(completed, total int64)
}

// NewProgress returns a Progress. onUpdate, if set, is called after each report.
func NewProgress(onUpdate func(completed, total int64)) *Progress {
	return &Progress{
		completed: atomic.NewInt64(0),
		total:     atomic.NewInt64(0),
		cancelled: atomic.NewBool(false),
		onUpdate:  onUpdate,
	}
}

// ReportProgress implements ProgressSink.
func (p *Progress) ReportProgress(delta, total int64) {
	completed := p.completed.Add(delta)
	p.total.Store(total)
	if p.onUpdate != nil {
		p.onUpdate(completed, total)
	}
}

// Cancelled implements ProgressSink.
func (p *Progress) Cancelled() bool {
	return p.cancelled.Load()
}

// Cancel asks the operation to stop at its next progress check.
func (p *Progress) Cancel() {
	p.cancelled.Store(true)
}

// Completed returns the points reported so far.
func (p *Progress) Completed() int64 {
	return p.completed.Load()
}

// Total returns the last reported total.
func (p *Progress) Total() int64 {
	return p.total.Load()
}

// Fraction returns completed/total, or 0 before the total is known.
func (p *Progress) Fraction() float64 {
	total := p.total.Load()
	if total <= 0 {
		return 0
	}
	return float64(p.completed.Load()) / float64(total)
}

// CheckCancelled reports `delta` completed points to the sink and returns ErrOperationCancelled
// when the sink or the context asks to stop. Operations call it at their polling boundary.
func CheckCancelled(ctx context.Context, sink ProgressSink, delta, total int64) error {
	if sink != nil {
		sink.ReportProgress(delta, total)
		if sink.Cancelled() {
			return ErrOperationCancelled
		}
	}
	if ctx != nil && ctx.Err() != nil {
		return errors.Wrap(ErrOperationCancelled, ctx.Err().Error())
	}
	return nil
}
