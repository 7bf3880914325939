// Package log provides the logging abstraction for likeship components.
//
// This package defines a Logger interface that can be implemented by any
// logging library. Default implementations are provided for zerolog and a
// no-op logger for testing.
//
// # Usage
//
// Use the provided zerolog adapter:
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//
// Output format follows the terminal: a console writer when stderr is a
// TTY, JSON otherwise. Wrap an existing zerolog.Logger with
// [NewZerologAdapterWithLogger] for full control.
//
// Or use the no-op logger for testing:
//
//	logger := log.NewNoopLogger()
package log
