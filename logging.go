// Structured logging for the engine's internal transitions: ticks,
// splice-outs, propagation steps, and memo hits/misses.
//
// The Logger interface is a small package-local abstraction (Category /
// Level / fields), so callers who don't want a third-party dependency can
// implement it trivially. The engine's default is [NoOpLogger];
// [NewDefaultLogger] builds one backed by
// github.com/joeycumines/logiface (a generic structured-logging facade)
// using github.com/joeycumines/stumpy as its JSON event encoder — the
// pairing logiface ships as its own reference implementation.
package reactor

import (
	"io"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Level is the severity of a log entry.
type Level int32

const (
	// LevelDebug is for tick/splice/propagation-step diagnostics.
	LevelDebug Level = iota
	// LevelInfo is for coarser lifecycle events. The engine's own
	// init/reset is logged at LevelDebug.
	LevelInfo
	// LevelWarn is for recovered exceptions routed through the exception
	// handler.
	LevelWarn
	// LevelError is for panics recovered from reader bodies, cleanups, or
	// dispatch callbacks.
	LevelError
)

// String returns the level's name.
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
	default:
		return "UNKNOWN"
	}
}

// Entry is a single structured log record.
type Entry struct {
	Level     Level
	Category  string // "timeline", "scheduler", "reader", "memo", "cell", "engine"
	Message   string
	Err       error
	Fields    map[string]any
	Timestamp time.Time
}

// Logger is the engine's structured logging interface.
type Logger interface {
	Log(Entry)
	IsEnabled(Level) bool
}

// NoOpLogger discards everything; it is the engine's default.
type NoOpLogger struct{}

// NewNoOpLogger returns the shared no-op logger.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

// Log implements Logger.
func (NoOpLogger) Log(Entry) {}

// IsEnabled implements Logger.
func (NoOpLogger) IsEnabled(Level) bool { return false }

// logifaceAdapter bridges Logger to a type-erased logiface.Logger[logiface.Event],
// translating Entry fields into the fluent Builder API (Str/Err/Log).
type logifaceAdapter struct {
	min Level
	log *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger wraps an existing logiface logger (typically produced by
// logiface.New[*stumpy.Event](stumpy.L.WithStumpy(...)).Logger()) as a
// Logger. Entries below min are dropped before reaching logiface.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event], min Level) Logger {
	return &logifaceAdapter{min: min, log: l}
}

// NewDefaultLogger builds the engine's out-of-the-box structured logger: a
// stumpy-backed JSON encoder writing to w, wrapped by logiface. This is the
// logger most callers want when they ask for "real" logging rather than the
// zero-value no-op.
func NewDefaultLogger(w io.Writer, min Level) Logger {
	typed := logiface.New[*stumpy.Event](stumpy.L.WithStumpy(stumpy.WithWriter(w)))
	return NewLogifaceLogger(typed.Logger(), min)
}

func (a *logifaceAdapter) IsEnabled(lvl Level) bool {
	if a.log == nil {
		return false
	}
	return lvl >= a.min && a.log.Level().Enabled()
}

func (a *logifaceAdapter) Log(e Entry) {
	if !a.IsEnabled(e.Level) {
		return
	}

	b := a.log.Build(toLogifaceLevel(e.Level))
	if b == nil {
		return
	}
	if e.Category != "" {
		b = b.Str("category", e.Category)
	}
	for k, v := range e.Fields {
		b = b.Any(k, v)
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	b.Log(e.Message)
}

func toLogifaceLevel(l Level) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// logDebug is a small helper used throughout the engine to avoid allocating
// a Fields map when logging is disabled.
func logDebug(l Logger, category, message string, fields map[string]any) {
	if !l.IsEnabled(LevelDebug) {
		return
	}
	l.Log(Entry{Level: LevelDebug, Category: category, Message: message, Fields: fields, Timestamp: time.Now()})
}

func logWarn(l Logger, category, message string, err error) {
	if !l.IsEnabled(LevelWarn) {
		return
	}
	l.Log(Entry{Level: LevelWarn, Category: category, Message: message, Err: err, Timestamp: time.Now()})
}

func logError(l Logger, category, message string, err error) {
	if !l.IsEnabled(LevelError) {
		return
	}
	l.Log(Entry{Level: LevelError, Category: category, Message: message, Err: err, Timestamp: time.Now()})
}
