package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Severity levels accepted by LogFunc sinks. These mirror the host
// application's message log levels.
const (
	SeverityDebug   = "DEBUG"
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// LogFunc is an explicit (message, severity) sink threaded through the
// classification pipeline. Consumers supply their own to route progress
// messages into a UI or log collector; a nil LogFunc is replaced by
// DefaultSink.
type LogFunc func(message, severity string)

// DefaultSink routes pipeline messages to the package logger.
func DefaultSink(message, severity string) {
	Logf("[%s] %s", severity, message)
}

// OrDefault returns f, or DefaultSink when f is nil.
func (f LogFunc) OrDefault() LogFunc {
	if f == nil {
		return DefaultSink
	}
	return f
}
