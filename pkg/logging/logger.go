// Package logging provides the structured JSON logger used across the overlay
// VFS. Log entries are single-line JSON objects with a level, message, and
// arbitrary key/value fields, so degraded-header transitions and lazy header
// writes can be asserted on in tests and scraped in production.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents a log level
type Level int

const (
	// DebugLevel logs are voluminous and usually disabled in production
	DebugLevel Level = iota
	// InfoLevel is the default logging priority
	InfoLevel
	// WarnLevel logs are notable but don't need individual review
	WarnLevel
	// ErrorLevel logs are high-priority failures
	ErrorLevel
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG", "debug":
		return DebugLevel
	case "INFO", "info":
		return InfoLevel
	case "WARN", "warn", "WARNING", "warning":
		return WarnLevel
	case "ERROR", "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// entry is the wire form of one log line
type entry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Logger writes JSON log entries. Child loggers created with With share the
// writer and level and carry pre-set fields.
type Logger struct {
	writer io.Writer
	level  Level
	fields []Field
	mu     *sync.Mutex
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		writer: w,
		level:  level,
		mu:     &sync.Mutex{},
	}
}

// NewDefault creates a logger writing to stdout at INFO level.
func NewDefault() *Logger {
	return New(os.Stdout, InfoLevel)
}

// NewNop creates a logger that discards everything. Used where a logger is
// required but output is unwanted, e.g. library defaults.
func NewNop() *Logger {
	return New(io.Discard, ErrorLevel+1)
}

// With returns a child logger whose entries always carry the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	child := &Logger{
		writer: l.writer,
		level:  l.level,
		mu:     l.mu,
		fields: make([]Field, 0, len(l.fields)+len(fields)),
	}
	child.fields = append(child.fields, l.fields...)
	child.fields = append(child.fields, fields...)
	return child
}

func (l *Logger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	fieldMap := make(map[string]any, len(l.fields)+len(fields))
	for _, f := range l.fields {
		fieldMap[f.Key] = f.Value
	}
	for _, f := range fields {
		if f.Value == nil {
			continue
		}
		fieldMap[f.Key] = f.Value
	}

	e := entry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if len(fieldMap) > 0 {
		e.Fields = fieldMap
	}

	data, err := json.Marshal(e)
	if err != nil {
		l.mu.Lock()
		fmt.Fprintf(l.writer, "[ERROR] failed to marshal log entry: %v\n", err)
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
	l.mu.Unlock()
}

// Debug logs a debug-level message
func (l *Logger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }

// Info logs an info-level message
func (l *Logger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields...) }

// Warn logs a warning-level message
func (l *Logger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields...) }

// Error logs an error-level message
func (l *Logger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }
