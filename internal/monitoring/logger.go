// Package monitoring holds the process-wide diagnostic logger shared by the
// measurement and simulation packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = Discard
		return
	}
	Logf = f
}

// Discard is a logger that drops every message.
func Discard(string, ...interface{}) {}

// Prefixed returns a logger that forwards to the current Logf with prefix
// prepended to the format, e.g. "[sim] ".
func Prefixed(prefix string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
