package micro

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Option configures a Micro under construction.
type Option func(*Micro) error

func WithConfig(cfg *Config) Option {
	return func(m *Micro) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		m.deps.Config = cfg
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(m *Micro) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		m.deps.Logger = logger
		return nil
	}
}

// WithTracer, WithMetrics and WithErrorReporter keep the no-op default when
// given nil.
func WithTracer(tracer Tracer) Option {
	return func(m *Micro) error {
		if tracer != nil {
			m.deps.Tracer = tracer
		}
		return nil
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(m *Micro) error {
		if metrics != nil {
			m.deps.Metrics = metrics
		}
		return nil
	}
}

func WithErrorReporter(reporter ErrorReporter) Option {
	return func(m *Micro) error {
		if reporter != nil {
			m.deps.Errors = reporter
		}
		return nil
	}
}

// WithHealthChecks adds probes under name: the first check is liveness, the
// second readiness. Missing checks always pass.
func WithHealthChecks(name string, checks ...HealthCheck) Option {
	return func(m *Micro) error {
		if name == "" {
			return errors.New("health check needs a name")
		}
		probes := [2]HealthCheck{HealthStatusOK, HealthStatusOK}
		for i := 0; i < len(checks) && i < len(probes); i++ {
			if checks[i] != nil {
				probes[i] = checks[i]
			}
		}
		m.health.Add(name, probes[0], probes[1])
		return nil
	}
}

// WithDebugRoutes serves /debug/routes behind guards. It must come before
// WithHTTPServer.
func WithDebugRoutes(enabled bool, guards ...func(http.Handler) http.Handler) Option {
	return func(m *Micro) error {
		m.debugRoutes = enabled
		m.debugGuards = guards
		return nil
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Micro) error {
		if d <= 0 {
			return errors.New("shutdown timeout must be positive")
		}
		m.shutdownTimeout = d
		return nil
	}
}

// WithLifecycle registers components by the interfaces they implement:
// Startable, Stoppable and ReadinessReporter. Nil entries are skipped.
func WithLifecycle(components ...any) Option {
	return func(m *Micro) error {
		for _, c := range components {
			if c != nil {
				m.addComponent(c)
			}
		}
		return nil
	}
}

// WithHTTPMiddleware appends router-wide middleware, outermost first.
func WithHTTPMiddleware(middleware ...func(http.Handler) http.Handler) Option {
	return func(m *Micro) error {
		m.middleware = append(m.middleware, middleware...)
		return nil
	}
}

// WithRouterConfigurator runs fn on the root router before modules mount.
func WithRouterConfigurator(fn func(chi.Router)) Option {
	return func(m *Micro) error {
		if fn == nil {
			return errors.New("router configurator is nil")
		}
		m.configurers = append(m.configurers, fn)
		return nil
	}
}

// WithShutdown adds a hook run after servers and components have stopped.
func WithShutdown(fn func(context.Context) error) Option {
	return func(m *Micro) error {
		if fn == nil {
			return errors.New("shutdown hook is nil")
		}
		m.hooks = append(m.hooks, fn)
		return nil
	}
}
