// Package observability provides the structured logging surface used across
// the redaction engine. Library packages accept a Logger and default to
// NopLogger; the CLI installs a writer-backed logger.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type int64Field struct {
	key string
	val int64
}

func (f int64Field) Key() string        { return f.key }
func (f int64Field) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field      { return stringField{key, value} }
func Int(key string, value int) Field     { return intField{key, value} }
func Int64(key string, value int64) Field { return int64Field{key, value} }
func Error(key string, err error) Field   { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Level controls which messages a writer logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// writerLogger writes one line per message: timestamp, level, message, then
// sorted key=value fields.
type writerLogger struct {
	mu    *sync.Mutex
	w     io.Writer
	level Level
	bound []Field
	now   func() time.Time
}

// NewLogger returns a Logger emitting to w at the given minimum level.
func NewLogger(w io.Writer, level Level) Logger {
	return &writerLogger{mu: &sync.Mutex{}, w: w, level: level, now: time.Now}
}

func (l *writerLogger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l *writerLogger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

func (l *writerLogger) With(fields ...Field) Logger {
	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(bound, l.bound...)
	bound = append(bound, fields...)
	return &writerLogger{mu: l.mu, w: l.w, level: l.level, bound: bound, now: l.now}
}

func (l *writerLogger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	all := make([]Field, 0, len(l.bound)+len(fields))
	all = append(all, l.bound...)
	all = append(all, fields...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Key() < all[j].Key() })

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", l.now().UTC().Format(time.RFC3339), level, msg)
	for _, f := range all {
		fmt.Fprintf(&b, " %s=%v", f.Key(), f.Value())
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.w, b.String())
}

// Standard metric names emitted by the engine.
const (
	MetricParseTime    = "redact.parse.duration"
	MetricPageCount    = "redact.pages.count"
	MetricScannedPages = "redact.pages.scanned"
	MetricOcrTime      = "redact.ocr.duration"
	MetricOccurrences  = "redact.occurrences.count"
	MetricIdentifyTime = "redact.identify.duration"
	MetricWriteTime    = "redact.write.duration"
)
