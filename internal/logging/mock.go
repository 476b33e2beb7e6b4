package logging

// MockLogger is a Logger implementation for tests. It records every entry so
// assertions can be made about what was logged. Derived loggers returned by
// WithError/WithField/WithFields share the root recorder, so entries logged
// through them are visible to the logger the test holds.
type MockLogger struct {
	entries       *[]LogEntry
	pendingError  error
	pendingFields []Field
}

// NewMockLogger creates an empty recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{entries: &[]LogEntry{}}
}

// LogEntry represents a single log entry captured by MockLogger.
type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
	Error   error
}

func (m *MockLogger) record(level, msg string, fields []Field) {
	allFields := append(append([]Field{}, m.pendingFields...), fields...)
	*m.sharedEntries() = append(*m.sharedEntries(), LogEntry{
		Level:   level,
		Message: msg,
		Fields:  allFields,
		Error:   m.pendingError,
	})
}

// Debug logs a debug-level message with optional fields.
func (m *MockLogger) Debug(msg string, fields ...Field) { m.record("DEBUG", msg, fields) }

// Info logs an info-level message with optional fields.
func (m *MockLogger) Info(msg string, fields ...Field) { m.record("INFO", msg, fields) }

// Warn logs a warning-level message with optional fields.
func (m *MockLogger) Warn(msg string, fields ...Field) { m.record("WARN", msg, fields) }

// Error logs an error-level message with optional fields.
func (m *MockLogger) Error(msg string, fields ...Field) { m.record("ERROR", msg, fields) }

// Fatal records the message instead of exiting so tests stay alive.
func (m *MockLogger) Fatal(msg string, fields ...Field) { m.record("FATAL", msg, fields) }

// WithError returns a logger with an error attached to subsequent entries.
func (m *MockLogger) WithError(err error) Logger {
	return &MockLogger{
		entries:       m.sharedEntries(),
		pendingError:  err,
		pendingFields: m.pendingFields,
	}
}

// WithField returns a logger with a single field attached.
func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return m.WithFields(Field{Key: key, Value: value})
}

// WithFields returns a logger with fields attached to subsequent entries.
func (m *MockLogger) WithFields(fields ...Field) Logger {
	return &MockLogger{
		entries:       m.sharedEntries(),
		pendingError:  m.pendingError,
		pendingFields: append(append([]Field{}, m.pendingFields...), fields...),
	}
}

func (m *MockLogger) sharedEntries() *[]LogEntry {
	if m.entries == nil {
		m.entries = &[]LogEntry{}
	}
	return m.entries
}

// Entries returns a copy of every captured entry in order.
func (m *MockLogger) Entries() []LogEntry {
	if m.entries == nil {
		return nil
	}
	return append([]LogEntry{}, *m.entries...)
}

// HasMessage reports whether any captured entry contains msg.
func (m *MockLogger) HasMessage(msg string) bool {
	if m.entries == nil {
		return false
	}
	for _, e := range *m.entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}
