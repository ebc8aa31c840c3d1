package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLogLevelText(t *testing.T) {
	for _, level := range []LogLevel{LogLevelOff, LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug} {
		text, err := level.MarshalText()
		assert.NoError(t, err)

		var parsed LogLevel
		assert.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, level, parsed)
	}

	var l LogLevel
	assert.NoError(t, l.UnmarshalText([]byte(" warning ")))
	assert.Equal(t, LogLevelWarn, l)
	assert.Error(t, l.UnmarshalText([]byte("verbose")))
	assert.Equal(t, "LogLevel(9)", LogLevel(9).String())
}

func TestDefaultLoggerLevels(t *testing.T) {
	logger := NewLogger(LogLevelWarn)
	assert.False(t, logger.level.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.level.Enabled(zapcore.WarnLevel))

	logger.SetLevel(LogLevelDebug)
	assert.True(t, logger.level.Enabled(zapcore.DebugLevel))

	logger.SetLevel(LogLevelOff)
	assert.False(t, logger.level.Enabled(zapcore.FatalLevel))

	child := logger.With("run_id", "abc")
	child.Error("discarded")
}

func TestLoggerImplementations(t *testing.T) {
	var _ Logger = NewLogger(LogLevelInfo)
	var _ Logger = NewNopLogger()
	var _ Logger = NewMockLogger()
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	m.Warn("first", "k", 1)
	m.Error("second")
	m.Warn("third")

	assert.Equal(t, 2, m.CountLevel("WARN"))
	msgs := m.GetMessages()
	assert.Len(t, msgs, 3)
	assert.Equal(t, []any{"k", 1}, msgs[0].Args)

	m.Clear()
	assert.Empty(t, m.GetMessages())
}

func TestMockLoggerConcurrent(t *testing.T) {
	m := NewMockLogger()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Error("failed", "worker", i)
			m.Debug("detail")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.CountLevel("ERROR"))
	assert.Equal(t, 20, m.CountLevel("DEBUG"))
	assert.Len(t, m.GetMessages(), 40)
}
