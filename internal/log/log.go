// Package log provides structured logging for devdeck.
// Entries carry a level, a category and key=value fields. They are written
// to a file (enabled with --debug or DEVDECK_DEBUG) and published to
// in-process listeners such as the log pane.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/devdeck/internal/pubsub"
)

// Level represents log severity.
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
	default:
		return "UNKNOWN"
	}
}

// Category groups related log messages.
type Category string

const (
	CatBus       Category = "bus"       // Channel bus subscriptions and publishes
	CatParser    Category = "parser"    // Chat directive parsing
	CatDispatch  Category = "dispatch"  // Directive routing and acknowledgements
	CatSession   Category = "session"   // Session lifecycle transitions
	CatWidget    Category = "widget"    // Editor, shell and chart adapters
	CatResponder Category = "responder" // Assistant reply generation
	CatCatalog   Category = "catalog"   // Data-source catalog loading
	CatConfig    Category = "config"    // Configuration loading/saving
	CatCache     Category = "cache"
	CatCommands  Category = "commands" // Command processor
	CatGateway   Category = "gateway"  // WebSocket gateway
	CatRelay     Category = "relay"    // Redis relay
	CatUI        Category = "ui"
)

// Entry is one log record.
type Entry struct {
	Time     time.Time
	Level    Level
	Category Category
	Message  string
	Fields   []any
}

// String formats the entry as a single line:
//
//	2025-12-06T10:45:00 [ERROR] [widget] message key=value key2=value2
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", e.Time.Format("2006-01-02T15:04:05"), e.Level, e.Category, e.Message)
	for i := 0; i+1 < len(e.Fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.Fields[i], e.Fields[i+1])
	}
	if len(e.Fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", e.Fields[len(e.Fields)-1])
	}
	return b.String()
}

// Logger writes entries to a writer and republishes them.
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	closer   io.Closer
	enabled  bool
	minLevel Level
	broker   *pubsub.Broker[Entry]
}

var defaultLogger atomic.Pointer[Logger]

// Init opens path for appending and installs it as the global logger.
// The returned func closes the file.
func Init(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path is user-controlled debug log path
	if err != nil {
		return nil, err
	}
	return install(f, f), nil
}

// InitWithTeaLog uses tea.LogToFile so Bubble Tea's own log lines land in
// the same file.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	return install(f, f), nil
}

// InitWriter installs a logger writing to w. It is mostly useful in tests.
func InitWriter(w io.Writer) func() {
	return install(w, nil)
}

func install(w io.Writer, c io.Closer) func() {
	l := &Logger{
		writer:   w,
		closer:   c,
		enabled:  true,
		minLevel: LevelDebug,
		broker:   pubsub.NewBroker[Entry](),
	}
	defaultLogger.Store(l)
	return func() {
		defaultLogger.CompareAndSwap(l, nil)
		l.broker.Close()
		if l.closer != nil {
			_ = l.closer.Close()
		}
	}
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if l := defaultLogger.Load(); l != nil {
		l.mu.Lock()
		l.enabled = enabled
		l.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if l := defaultLogger.Load(); l != nil {
		l.mu.Lock()
		l.minLevel = level
		l.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	log(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	log(LevelError, cat, msg, fields...)
}

func log(level Level, cat Category, msg string, fields ...any) {
	l := defaultLogger.Load()
	if l == nil {
		return
	}

	l.mu.Lock()
	if !l.enabled || level < l.minLevel {
		l.mu.Unlock()
		return
	}
	entry := Entry{Time: time.Now(), Level: level, Category: cat, Message: msg, Fields: fields}
	if l.writer != nil {
		_, _ = io.WriteString(l.writer, entry.String()+"\n")
	}
	l.mu.Unlock()

	// Published outside the lock: a listener that logs must not deadlock.
	l.broker.Publish(pubsub.CreatedEvent, entry)
}

// LogEvent is a pubsub event containing a log entry.
type LogEvent = pubsub.Event[Entry]

// LogListener wraps a continuous listener for log events.
type LogListener = pubsub.ContinuousListener[Entry]

// NewListener creates a listener for log entries, or nil when no logger is
// installed. It is released when ctx is cancelled or on Close.
func NewListener(ctx context.Context) *LogListener {
	l := defaultLogger.Load()
	if l == nil {
		return nil
	}
	return pubsub.NewContinuousListener(ctx, l.broker)
}
