// Package logger provides structured logging and run metrics for the crawler.
//
// Log lines are written through zerolog, as JSON by default or in a
// human-readable console layout. Callers use the package-level helpers with a
// Fields map, the same shape whichever output is configured:
//
//	logger.Info("Tournament imported", logger.Fields{
//	    "title":     t.Title,
//	    "divisions": len(t.Divisions),
//	})
//
//	logger.Error("Detail page failed", logger.Fields{"url": url}, err)
//
// Metrics tracks counters and stage timings for a crawl and can be dumped
// into the final summary line:
//
//	logger.IncrCounter("insert.success")
//	logger.RecordTiming("scrape.list", time.Since(start))
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Format selects the output layout.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger wraps a zerolog.Logger behind the Fields-based API.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(LevelInfo, os.Stdout)
)

// ParseLevel converts a config value such as "info" or "WARN" into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo, "":
		return LevelInfo, nil
	case LevelWarn, "WARNING":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// New creates a JSON logger writing to output. Messages below level are
// discarded.
func New(level Level, output io.Writer) *Logger {
	zl := zerolog.New(output).With().Timestamp().Logger().Level(zerologLevel(level))
	return &Logger{zl: zl}
}

// NewWithFormat creates a logger in the given format. The console format is
// meant for terminals; anything else falls back to JSON.
func NewWithFormat(level Level, format Format, output io.Writer) *Logger {
	if format != FormatConsole {
		return New(level, output)
	}
	cw := zerolog.ConsoleWriter{Out: output, TimeFormat: time.DateTime}
	zl := zerolog.New(cw).With().Timestamp().Logger().Level(zerologLevel(level))
	return &Logger{zl: zl}
}

// SetDefault replaces the logger used by the package-level functions.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the logger used by the package-level functions.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// log writes a structured log entry
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = l.zl.Debug()
	case LevelWarn:
		ev = l.zl.Warn()
	case LevelError:
		ev = l.zl.Error()
	default:
		ev = l.zl.Info()
	}
	if ev == nil {
		return
	}

	// Sorted keys keep console output stable between runs.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev = ev.Interface(k, fields[k])
	}

	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(message)
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning message with optional structured fields.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	Default().Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	Default().Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	Default().Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	Default().Error(message, fields, err)
}
