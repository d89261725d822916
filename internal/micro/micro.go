package micro

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultShutdownTimeout = 10 * time.Second

// Startable components run setup before the servers accept traffic.
type Startable interface {
	Start(context.Context) error
}

// Stoppable components release resources after the servers have drained.
type Stoppable interface {
	Stop(context.Context) error
}

// ReadinessReporter components contribute a named readiness probe.
type ReadinessReporter interface {
	Readiness() (string, HealthCheck)
}

// LifecycleHooks turns plain functions into a lifecycle component.
type LifecycleHooks struct {
	OnStart func(context.Context) error
	OnStop  func(context.Context) error
}

func (h LifecycleHooks) Start(ctx context.Context) error { return call(h.OnStart, ctx) }
func (h LifecycleHooks) Stop(ctx context.Context) error  { return call(h.OnStop, ctx) }

func call(fn func(context.Context) error, ctx context.Context) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// stage is one unit Run brings up in order and tears down in reverse.
type stage struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// Micro runs one service process: lifecycle components first, then the
// network servers, and on cancellation the same in reverse followed by the
// shutdown hooks.
type Micro struct {
	deps            Deps
	health          *HealthRegistry
	components      []stage
	servers         []stage
	listeners       []*listener
	hooks           []func(context.Context) error
	shutdownTimeout time.Duration

	middleware  []func(http.Handler) http.Handler
	configurers []func(chi.Router)
	debugRoutes bool
	debugGuards []func(http.Handler) http.Handler
	httpAdded   bool
}

// Build applies opts in order. Config and Logger are mandatory.
func Build(opts ...Option) (*Micro, error) {
	m := &Micro{
		deps: Deps{
			Tracer:  NoopTracer{},
			Metrics: NoopMetrics{},
			Errors:  NoopErrorReporter{},
		},
		health:          NewHealthRegistry(),
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("micro option: %w", err)
		}
	}
	switch {
	case m.deps.Config == nil:
		return nil, errors.New("micro: config is required")
	case m.deps.Logger == nil:
		return nil, errors.New("micro: logger is required")
	}
	return m, nil
}

// Run blocks until ctx is done. A failing start unwinds whatever already
// started. Teardown gets a fresh context bounded by the shutdown timeout and
// every error met on the way is returned joined.
func (m *Micro) Run(ctx context.Context) error {
	log := m.deps.Logger

	if n, err := startStages(ctx, m.components); err != nil {
		return errors.Join(fmt.Errorf("lifecycle start: %w", err), m.unwind(m.components[:n]))
	}
	if n, err := startStages(ctx, m.servers); err != nil {
		return errors.Join(fmt.Errorf("server start: %w", err), m.unwind(m.servers[:n]), m.unwind(m.components))
	}
	log.Info("service started", "servers", len(m.servers), "components", len(m.components))

	<-ctx.Done()
	log.Info("shutting down", "timeout", m.shutdownTimeout.String())

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout)
	defer cancel()

	errs := []error{stopStages(stopCtx, m.servers), stopStages(stopCtx, m.components)}
	for _, hook := range m.hooks {
		if err := hook(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown hook: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (m *Micro) unwind(started []stage) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	return stopStages(ctx, started)
}

// startStages reports how many stages started before the first failure.
func startStages(ctx context.Context, stages []stage) (int, error) {
	for i, s := range stages {
		if err := call(s.start, ctx); err != nil {
			return i, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return len(stages), nil
}

func stopStages(ctx context.Context, stages []stage) error {
	var errs []error
	for i := len(stages) - 1; i >= 0; i-- {
		if err := call(stages[i].stop, ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", stages[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Deps returns the collaborators wired by the options.
func (m *Micro) Deps() Deps { return m.deps }

// Health returns the registry behind the HTTP and gRPC health surfaces.
func (m *Micro) Health() *HealthRegistry { return m.health }

func (m *Micro) addComponent(c any) {
	s := stage{name: fmt.Sprintf("%T", c)}
	if v, ok := c.(Startable); ok {
		s.start = v.Start
	}
	if v, ok := c.(Stoppable); ok {
		s.stop = v.Stop
	}
	if s.start != nil || s.stop != nil {
		m.components = append(m.components, s)
	}
	if v, ok := c.(ReadinessReporter); ok {
		name, check := v.Readiness()
		m.health.Add(name, nil, check)
	}
}
