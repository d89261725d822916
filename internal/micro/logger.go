package micro

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger shared by the service. kv holds
// alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

// NewFormattedLogger writes to stdout through slog, as json when format is
// "json" and as text otherwise.
func NewFormattedLogger(level, format string) Logger {
	return newSlogLogger(os.Stdout, level, format)
}

func newSlogLogger(out io.Writer, level, format string) Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	if strings.EqualFold(format, "json") {
		return slogLogger{slog.New(slog.NewJSONHandler(out, opts))}
	}
	return slogLogger{slog.New(slog.NewTextHandler(out, opts))}
}

type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Debug(msg string, kv ...any) { s.l.Debug(msg, kv...) }
func (s slogLogger) Info(msg string, kv ...any)  { s.l.Info(msg, kv...) }
func (s slogLogger) Error(msg string, kv ...any) { s.l.Error(msg, kv...) }
func (s slogLogger) With(kv ...any) Logger       { return slogLogger{s.l.With(kv...)} }

// NewZapLogger writes to stdout through zap. encoding "console" or "text"
// selects the console encoder; anything else is json.
func NewZapLogger(level, encoding string) Logger {
	return newZapLogger(zapcore.Lock(os.Stdout), level, encoding)
}

func newZapLogger(out zapcore.WriteSyncer, level, encoding string) *zapLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	enc := zapcore.NewJSONEncoder(cfg)
	if e := strings.ToLower(encoding); e == "console" || e == "text" {
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, out, zapLevel(level))
	return &zapLogger{zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

type zapLogger struct{ s *zap.SugaredLogger }

func (z *zapLogger) Debug(msg string, kv ...any) { z.s.Debugw(msg, kv...) }
func (z *zapLogger) Info(msg string, kv ...any)  { z.s.Infow(msg, kv...) }
func (z *zapLogger) Error(msg string, kv ...any) { z.s.Errorw(msg, kv...) }
func (z *zapLogger) With(kv ...any) Logger       { return &zapLogger{z.s.With(kv...)} }

// Sync flushes buffered entries.
func (z *zapLogger) Sync() error { return z.s.Sync() }

type noopLogger struct{}

func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

// slogLevel and zapLevel accept debug, info and error, plus their three
// letter forms. Anything else is info.
func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "error", "err":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func zapLevel(level string) zapcore.Level {
	switch slogLevel(level) {
	case slog.LevelDebug:
		return zapcore.DebugLevel
	case slog.LevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// NewRequestLogger logs one debug line when a request arrives and one info
// line with status, size and latency when it completes.
func NewRequestLogger(logger Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return chimiddleware.RequestLogger(requestLogFormatter{logger})
}

type requestLogFormatter struct{ log Logger }

func (f requestLogFormatter) NewLogEntry(r *http.Request) chimiddleware.LogEntry {
	log := f.log.With("request_id", RequestIDFrom(r.Context()), "method", r.Method, "path", r.URL.Path)
	log.Debug("request started", "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())
	return requestLogEntry{log}
}

type requestLogEntry struct{ log Logger }

func (e requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	e.log.Info("request completed", "status", status, "bytes", bytes, "elapsed_ms", elapsed.Milliseconds())
}

func (e requestLogEntry) Panic(v any, stack []byte) {
	e.log.Error("request panic", "panic", fmt.Sprint(v), "stack", string(stack))
}
