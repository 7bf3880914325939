package log

// NoopLogger is a Logger that drops everything. Handy as the default in
// tests and fixtures where log output is noise.
type NoopLogger struct{}

// NewNoopLogger returns a logger that discards all output.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// Debug is a no-op.
func (NoopLogger) Debug(msg string, fields ...Field) {}

// Info is a no-op.
func (NoopLogger) Info(msg string, fields ...Field) {}

// Warn is a no-op.
func (NoopLogger) Warn(msg string, fields ...Field) {}

// Error is a no-op.
func (NoopLogger) Error(msg string, fields ...Field) {}
