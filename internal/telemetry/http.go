package telemetry

import (
	"fmt"
	"net/http"

	"github.com/danielnirn/shopping-api/internal/micro"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NewHTTPMiddleware opens one span per request, continuing any trace carried
// in the incoming headers. Responses with a 5xx status end the span as failed.
func NewHTTPMiddleware(tracer micro.Tracer) func(http.Handler) http.Handler {
	if tracer == nil {
		tracer = micro.NoopTracer{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, "http "+r.Method, map[string]any{
				"http.request.method": r.Method,
				"url.path":            r.URL.Path,
				"request.id":          micro.RequestIDFrom(r.Context()),
			})

			rw := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r.WithContext(ctx))

			var err error
			if status := rw.Status(); status >= http.StatusInternalServerError {
				err = fmt.Errorf("http status %d", status)
			}
			span.End(err)
		})
	}
}
