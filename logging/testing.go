package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender writes entries through tb.Log so each line is attributed to the test that
// produced it, including under t.Parallel.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an Appender backed by tb.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// Keep the file:line prefix of tb.Log pointing past this frame.
	tapp.tb.Helper()
	line, err := formatEntry(entry, fields)
	tapp.tb.Log(line)
	return err
}

func (tapp *testAppender) Sync() error {
	return nil
}
