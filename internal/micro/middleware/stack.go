package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielnirn/shopping-api/internal/micro"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	defaultTimeout  = 30 * time.Second
	compressLevel   = 5
	jsonContentType = "application/json"
)

type StackOptions struct {
	Logger          micro.Logger
	Metrics         micro.Metrics
	Errors          micro.ErrorReporter
	TimeoutDuration time.Duration
	CORSOptions     *CORSOptions
}

// DefaultStack returns the middleware applied to every HTTP route, outermost
// first. CORS runs before the content-type check so preflights pass.
func DefaultStack(opts StackOptions) []func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = micro.NewNoopLogger()
	}
	timeout := opts.TimeoutDuration
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cors := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		cors = *opts.CORSOptions
	}

	return []func(http.Handler) http.Handler{
		micro.RequestIDMiddleware,
		chimw.RealIP,
		chimw.Compress(compressLevel),
		chimw.Recoverer,
		ErrorReporter(opts.Errors),
		chimw.Timeout(timeout),
		micro.NewRequestLogger(logger),
		Metrics(opts.Metrics),
		CORS(cors),
		chimw.AllowContentType(jsonContentType),
	}
}

// Metrics counts and times each request, labelled by the chi route pattern
// rather than the raw path.
func Metrics(m micro.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		m = micro.NoopMetrics{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			began := time.Now()
			next.ServeHTTP(ww, r)

			route := routeOf(r)
			m.Counter(r.Context(), "http_requests_total", 1, map[string]string{
				"method": r.Method,
				"path":   route,
				"status": strconv.Itoa(ww.Status()),
			})
			m.ObserveHTTPRequest(route, r.Method, ww.Status(), time.Since(began))
		})
	}
}

// ErrorReporter reports panics and 5xx responses. Panics are re-raised for
// the recoverer above it.
func ErrorReporter(reporter micro.ErrorReporter) func(http.Handler) http.Handler {
	if reporter == nil {
		reporter = micro.NoopErrorReporter{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if v := recover(); v != nil {
					reporter.Report(r.Context(), panicError(v), requestFields(r, 0))
					panic(v)
				}
			}()

			next.ServeHTTP(ww, r)

			if code := ww.Status(); code >= http.StatusInternalServerError {
				reporter.Report(r.Context(), fmt.Errorf("http %d", code), requestFields(r, code))
			}
		})
	}
}

func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

func requestFields(r *http.Request, status int) map[string]any {
	f := map[string]any{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": micro.RequestIDFrom(r.Context()),
	}
	if status > 0 {
		f["status"] = status
	}
	return f
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
