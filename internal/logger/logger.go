// Package logger provides the structured JSON logger shared by the
// message-delivery and user-discovery services.
package logger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the textual name of a level.
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
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Field is a structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Uint64 creates a uint64 field.
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

// Bool creates a boolean field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Err creates an error field; nil errors are encoded as a null value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field, rendered as its string form.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any creates a field carrying an arbitrary value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// UID creates a field identifying a UserStorage record.
func UID(uid string) Field { return Field{Key: "uid", Value: uid} }

// Slug creates a field identifying a share-link slug.
func Slug(slug string) Field { return Field{Key: "slug", Value: slug} }

// Recipient creates a field identifying a mailbox by its recipient public
// key, logged as a short hex fingerprint rather than the full key material.
func Recipient(pubKey []byte) Field {
	n := len(pubKey)
	if n > 6 {
		n = 6
	}
	return Field{Key: "recipient", Value: hex.EncodeToString(pubKey[:n])}
}

// Logger is the structured logging interface used throughout both services.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	WithContext(ctx context.Context) Logger
	WithFields(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// contextKey namespaces values this package reads off a context.Context.
type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID returns a context carrying the given request id, attached by
// each service's RequestRouter to every inbound HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ForComponent returns the process-wide default logger scoped to one of the
// two jaem-server components, stamping every entry it emits with a
// "component" field ("mde" or "uds") so a shared log sink can tell the
// Message Delivery Engine and User Discovery Service apart. Unlike a
// context-carried tag, the component is fixed once at startup: it never
// changes over the lifetime of a process, so it belongs on the logger
// itself rather than threaded through every request context.
func ForComponent(component string) Logger {
	return Default().WithFields(String("component", component))
}

// StructuredLogger is the JSON-emitting Logger implementation.
type StructuredLogger struct {
	mu         sync.RWMutex
	level      Level
	output     io.Writer
	context    context.Context
	baseFields []Field
	timeFormat string
}

// New creates a logger writing newline-delimited JSON to output.
func New(output io.Writer, level Level) *StructuredLogger {
	return &StructuredLogger{
		level:      level,
		output:     output,
		timeFormat: time.RFC3339,
	}
}

// NewDefault creates a logger at InfoLevel writing to stdout, honoring the
// JAEM_LOG_LEVEL environment variable if set.
func NewDefault() *StructuredLogger {
	level := InfoLevel
	switch strings.ToUpper(os.Getenv("JAEM_LOG_LEVEL")) {
	case "DEBUG":
		level = DebugLevel
	case "INFO":
		level = InfoLevel
	case "WARN":
		level = WarnLevel
	case "ERROR":
		level = ErrorLevel
	}
	return New(os.Stdout, level)
}

func (l *StructuredLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *StructuredLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *StructuredLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *StructuredLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

func (l *StructuredLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

// WithContext returns a logger that reads the request id off ctx.
func (l *StructuredLogger) WithContext(ctx context.Context) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &StructuredLogger{
		level:      l.level,
		output:     l.output,
		context:    ctx,
		baseFields: l.baseFields,
		timeFormat: l.timeFormat,
	}
}

// WithFields returns a logger that always attaches the given fields.
func (l *StructuredLogger) WithFields(fields ...Field) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	merged := make([]Field, len(l.baseFields)+len(fields))
	copy(merged, l.baseFields)
	copy(merged[len(l.baseFields):], fields)
	return &StructuredLogger{
		level:      l.level,
		output:     l.output,
		context:    l.context,
		baseFields: merged,
		timeFormat: l.timeFormat,
	}
}

// SetLevel updates the minimum level logged.
func (l *StructuredLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum level.
func (l *StructuredLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *StructuredLogger) log(level Level, msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level < l.level {
		return
	}

	entry := make(map[string]interface{}, 8+len(fields))
	entry["timestamp"] = time.Now().Format(l.timeFormat)
	entry["level"] = level.String()
	entry["message"] = msg

	if _, file, line, ok := runtime.Caller(2); ok {
		entry["caller"] = fmt.Sprintf("%s:%d", file, line)
	}

	if l.context != nil {
		if requestID := l.context.Value(requestIDKey); requestID != nil {
			entry["request_id"] = requestID
		}
	}

	for _, field := range l.baseFields {
		entry[field.Key] = field.Value
	}
	for _, field := range fields {
		entry[field.Key] = field.Value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.output, `{"level":"ERROR","message":"failed to marshal log entry","error":%q}`+"\n", err.Error())
		return
	}
	fmt.Fprintf(l.output, "%s\n", data)
}

var defaultLogger Logger = NewDefault()

// SetDefault sets the process-wide default logger.
func SetDefault(l Logger) { defaultLogger = l }

// Default returns the process-wide default logger.
func Default() Logger { return defaultLogger }
