package utils

import (
	"sync"
)

// MockLogger records every message so tests can assert on what was logged.
type MockLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// LogMessage represents a logged message
type LogMessage struct {
	Level   string
	Message string
	Args    []any
}

func NewMockLogger() *MockLogger {
	return &MockLogger{Messages: []LogMessage{}}
}

func (m *MockLogger) record(level, msg string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, LogMessage{Level: level, Message: msg, Args: args})
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("DEBUG", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("INFO", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("WARN", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("ERROR", msg, args) }
func (m *MockLogger) SetLevel(LogLevel)             {}

// GetMessages returns a copy of the recorded messages.
func (m *MockLogger) GetMessages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogMessage(nil), m.Messages...)
}

// CountLevel returns how many messages were logged at the given level.
func (m *MockLogger) CountLevel(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.Messages {
		if msg.Level == level {
			n++
		}
	}
	return n
}

func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = []LogMessage{}
}
