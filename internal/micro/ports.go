package micro

import (
	"context"
	"time"
)

// Deps is the set of shared collaborators handed to transports.
type Deps struct {
	Logger  Logger
	Config  *Config
	Tracer  Tracer
	Metrics Metrics
	Errors  ErrorReporter
}

// Tracer starts spans around units of work.
type Tracer interface {
	Start(ctx context.Context, name string, attrs map[string]any) (context.Context, Span)
}

// Span ends with the error of the work it covers, or nil.
type Span interface {
	End(err error)
}

// Metrics records counters and HTTP request timings.
type Metrics interface {
	Counter(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHTTPRequest(route, method string, status int, elapsed time.Duration)
}

// ErrorReporter receives failures nobody else handled, such as 5xx responses
// and recovered panics.
type ErrorReporter interface {
	Report(ctx context.Context, err error, fields map[string]any)
}

type (
	NoopTracer        struct{}
	NoopMetrics       struct{}
	NoopErrorReporter struct{}
	noopSpan          struct{}
)

func (NoopTracer) Start(ctx context.Context, _ string, _ map[string]any) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopSpan) End(error) {}

func (NoopMetrics) Counter(context.Context, string, float64, map[string]string) {}

func (NoopMetrics) ObserveHTTPRequest(string, string, int, time.Duration) {}

func (NoopErrorReporter) Report(context.Context, error, map[string]any) {}

type logReporter struct {
	log Logger
}

// NewLogErrorReporter logs every report at error level together with the
// request id found in ctx.
func NewLogErrorReporter(logger Logger) ErrorReporter {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return logReporter{log: logger}
}

func (r logReporter) Report(ctx context.Context, err error, fields map[string]any) {
	if err == nil {
		return
	}
	kv := []any{"error", err.Error()}
	if id := RequestIDFrom(ctx); id != "" {
		kv = append(kv, "request_id", id)
	}
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	r.log.Error("unexpected error", kv...)
}
