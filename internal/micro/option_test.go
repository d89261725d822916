package micro

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type stubTracer struct{ NoopTracer }

type stubMetrics struct{ NoopMetrics }

type stubReporter struct{ NoopErrorReporter }

func TestCollaboratorOptions(t *testing.T) {
	ms := newTestMicro(t, WithTracer(stubTracer{}), WithMetrics(stubMetrics{}), WithErrorReporter(stubReporter{}))

	deps := ms.Deps()
	if _, ok := deps.Tracer.(stubTracer); !ok {
		t.Errorf("Tracer = %T", deps.Tracer)
	}
	if _, ok := deps.Metrics.(stubMetrics); !ok {
		t.Errorf("Metrics = %T", deps.Metrics)
	}
	if _, ok := deps.Errors.(stubReporter); !ok {
		t.Errorf("Errors = %T", deps.Errors)
	}

	ms = newTestMicro(t, WithTracer(nil), WithMetrics(nil), WithErrorReporter(nil))
	if _, ok := ms.Deps().Tracer.(NoopTracer); !ok {
		t.Error("nil tracer should keep the default")
	}
}

func TestOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"nil config", WithConfig(nil)},
		{"nil logger", WithLogger(nil)},
		{"nil shutdown", WithShutdown(nil)},
		{"nil router configurator", WithRouterConfigurator(nil)},
		{"unnamed health check", WithHealthChecks("")},
		{"zero shutdown timeout", WithShutdownTimeout(0)},
		{"negative shutdown timeout", WithShutdownTimeout(-time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opt(&Micro{health: NewHealthRegistry()}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWithHealthChecks(t *testing.T) {
	down := errors.New("no primary")
	ms := newTestMicro(t,
		WithHealthChecks("shoppinglist"),
		WithHealthChecks("mongo", nil, func(context.Context) error { return down }),
	)

	hr := ms.Health()
	if len(hr.live) != 2 || len(hr.ready) != 2 {
		t.Errorf("live/ready = %d/%d, want 2/2", len(hr.live), len(hr.ready))
	}
	if err := hr.Ready(context.Background()); err == nil || err.Error() != "mongo: no primary" {
		t.Errorf("Ready = %v", err)
	}
}

func TestWithShutdownTimeoutAndDebugRoutes(t *testing.T) {
	guard := func(next http.Handler) http.Handler { return next }
	ms := newTestMicro(t, WithShutdownTimeout(time.Second), WithDebugRoutes(true, guard))

	if ms.shutdownTimeout != time.Second {
		t.Errorf("shutdownTimeout = %v", ms.shutdownTimeout)
	}
	if !ms.debugRoutes || len(ms.debugGuards) != 1 {
		t.Error("debug routes should be enabled with one guard")
	}
}

func TestWithRouterConfiguratorAndMiddleware(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	configured := false

	ms := newTestMicro(t,
		WithHTTPMiddleware(mark("outer")),
		WithHTTPMiddleware(mark("inner")),
		WithRouterConfigurator(func(chi.Router) { configured = true }),
	)

	if len(ms.middleware) != 2 || len(ms.configurers) != 1 {
		t.Fatalf("middleware/configurers = %d/%d", len(ms.middleware), len(ms.configurers))
	}
	ms.configurers[0](chi.NewRouter())
	if !configured {
		t.Error("configurator not stored")
	}

	h := ms.middleware[0](ms.middleware[1](http.NotFoundHandler()))
	h.ServeHTTP(nopWriter{}, &http.Request{})
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("order = %v", order)
	}
}

type nopWriter struct{}

func (nopWriter) Header() http.Header       { return http.Header{} }
func (nopWriter) Write(b []byte) (int, error) { return len(b), nil }
func (nopWriter) WriteHeader(int)           {}
