// Package logger provides the global structured logger used by every
// binary and library package in the resolver. It wraps charmbracelet/log
// with key/value pairs, e.g. logger.Info("shard written", "file", name).
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

var singleton *log.Logger

// Init configures the global logger. Binaries call this once at startup;
// logging before Init is a no-op so library tests stay quiet.
func Init(debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	singleton = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}

// Debug writes a message at DEBUG level.
func Debug(message string, keyvals ...any) {
	if singleton == nil {
		return
	}
	singleton.Debug(message, keyvals...)
}

// Info writes a message at INFO level.
func Info(message string, keyvals ...any) {
	if singleton == nil {
		return
	}
	singleton.Info(message, keyvals...)
}

// Warn writes a message at WARN level.
func Warn(message string, keyvals ...any) {
	if singleton == nil {
		return
	}
	singleton.Warn(message, keyvals...)
}

// Error writes a message at ERROR level.
func Error(message string, keyvals ...any) {
	if singleton == nil {
		return
	}
	singleton.Error(message, keyvals...)
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	if singleton == nil {
		os.Exit(1)
	}
	singleton.Fatal(message, keyvals...)
}
