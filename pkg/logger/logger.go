// Package logger provides a zap-based application logger.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum level a Logger writes.
type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// TraceIDFn extracts a trace id from a context; an empty string means none.
type TraceIDFn func(ctx context.Context) string

// Logger writes structured JSON entries tagged with the service name and the
// trace id of the calling context.
type Logger struct {
	z       *zap.SugaredLogger
	traceID TraceIDFn
}

// New builds a Logger writing JSON to w.
func New(w io.Writer, minLevel Level, service string, traceIDFn TraceIDFn) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), minLevel)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).With(zap.String("service", service))
	return &Logger{z: z.Sugar(), traceID: traceIDFn}
}

// NewNop returns a Logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

// Debug logs at debug level with alternating key/value pairs.
func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) { l.write(ctx, LevelDebug, msg, kv) }

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, kv ...any) { l.write(ctx, LevelInfo, msg, kv) }

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, kv ...any) { l.write(ctx, LevelWarn, msg, kv) }

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, kv ...any) { l.write(ctx, LevelError, msg, kv) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.z.Sync() }

func (l *Logger) write(ctx context.Context, lvl Level, msg string, kv []any) {
	if l.traceID != nil && ctx != nil {
		if id := l.traceID(ctx); id != "" {
			kv = append(kv, "trace_id", id)
		}
	}
	l.z.Logw(lvl, msg, kv...)
}
