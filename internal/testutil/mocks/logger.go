package mocks

import (
	"fmt"
	"sync"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
)

// MockLogger is a mock implementation of Logger for testing
type MockLogger struct {
	mu         sync.Mutex
	InfoCalls  []LogCall
	ErrorCalls []LogCall
	WarnCalls  []LogCall
	DebugCalls []LogCall
}

// LogCall represents a captured log call
type LogCall struct {
	Message string
	Fields  []ports.Field
}

// NewMockLogger creates a new mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Info logs an info message
func (m *MockLogger) Info(msg string, fields ...ports.Field) {
	m.record(&m.InfoCalls, msg, fields)
}

// Error logs an error message
func (m *MockLogger) Error(msg string, fields ...ports.Field) {
	m.record(&m.ErrorCalls, msg, fields)
}

// Warn logs a warning message
func (m *MockLogger) Warn(msg string, fields ...ports.Field) {
	m.record(&m.WarnCalls, msg, fields)
}

// Debug logs a debug message
func (m *MockLogger) Debug(msg string, fields ...ports.Field) {
	m.record(&m.DebugCalls, msg, fields)
}

func (m *MockLogger) record(calls *[]LogCall, msg string, fields []ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*calls = append(*calls, LogCall{Message: msg, Fields: fields})
}

// Rendered returns every captured message and field value as text,
// for asserting that nothing sensitive was logged
func (m *MockLogger) Rendered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, calls := range [][]LogCall{m.InfoCalls, m.ErrorCalls, m.WarnCalls, m.DebugCalls} {
		for _, call := range calls {
			out = append(out, call.Message)
			for _, f := range call.Fields {
				out = append(out, fmt.Sprintf("%s=%v", f.Key, f.Value))
			}
		}
	}
	return out
}

// Reset clears all captured calls
func (m *MockLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls = nil
	m.ErrorCalls = nil
	m.WarnCalls = nil
	m.DebugCalls = nil
}
