package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Defaults(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	_, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir-xyz/out.log"}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestLogger_FieldsReachSink(t *testing.T) {
	l, logs := newObservedLogger()

	l.Info("fit complete",
		String("model_type", "contextpred"),
		Int("epochs", 10),
		Float64("loss", 0.25),
		Bool("classification", true),
		Duration("elapsed", 2*time.Second),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fit complete", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "contextpred", fields["model_type"])
	assert.EqualValues(t, 10, fields["epochs"])
	assert.Equal(t, 0.25, fields["loss"])
}

func TestLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger()

	child := l.With(String("component", "train")).Named("gnn")
	child.Warn("label vector shorter than batch")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "gnn", entries[0].LoggerName)
	assert.Equal(t, "train", entries[0].ContextMap()["component"])
}

func TestErrField(t *testing.T) {
	assert.Equal(t, "<nil>", Err(nil).Value)
	assert.Equal(t, "boom", Err(errors.New("boom")).Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	// Must not panic and must return usable children.
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.With(String("k", "v")).Named("child").Info("x")
}
