package micro

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// HTTPModule mounts its routes on the service router.
type HTTPModule interface {
	RegisterRoutes(r chi.Router)
}

// WithHTTPServer builds the chi router and adds an HTTP server listening on
// the address stored under addrKey. Middleware, configurators, health checks
// and debug routes must be configured by earlier options. Modules that are
// also lifecycle components are registered as such.
func WithHTTPServer(addrKey string, modules ...HTTPModule) Option {
	return func(m *Micro) error {
		if addrKey == "" {
			return errors.New("http address key is empty")
		}
		if m.deps.Config == nil {
			return errors.New("http server needs WithConfig first")
		}
		if m.httpAdded {
			return errors.New("http server already added")
		}
		m.httpAdded = true

		router := chi.NewRouter()
		router.Use(m.middleware...)
		m.health.Add("core", HealthStatusOK, HealthStatusOK)
		m.health.Mount(router)
		for _, configure := range m.configurers {
			configure(router)
		}
		for i, mod := range modules {
			if mod == nil {
				return fmt.Errorf("http module %d is nil", i)
			}
			mod.RegisterRoutes(router)
			m.addComponent(mod)
		}
		if m.debugRoutes {
			MountDebugRoutes(router, m.debugGuards...)
		}

		srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
		m.addServer(newListener("http", m.deps.Config.Port(addrKey, ":8080"), m.deps.Logger,
			srv.Serve,
			func(ctx context.Context) error { return srv.Shutdown(ctx) },
		))
		return nil
	}
}

// WithGRPCServer adds a gRPC server exposing grpc.health.v1, answered from
// the readiness probes, and server reflection.
func WithGRPCServer(addrKey string) Option {
	return func(m *Micro) error {
		if addrKey == "" {
			return errors.New("grpc address key is empty")
		}
		if m.deps.Config == nil {
			return errors.New("grpc server needs WithConfig first")
		}
		srv := grpc.NewServer()
		healthpb.RegisterHealthServer(srv, &grpcHealth{registry: m.health})
		reflection.Register(srv)

		m.addServer(newListener("grpc", m.deps.Config.Port(addrKey, ":50051"), m.deps.Logger,
			srv.Serve,
			func(ctx context.Context) error { return gracefulStop(ctx, srv) },
		))
		return nil
	}
}

type grpcHealth struct {
	healthpb.UnimplementedHealthServer
	registry *HealthRegistry
}

// Check knows only the whole server, addressed by the empty service name.
func (h *grpcHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	st := healthpb.HealthCheckResponse_SERVING
	if h.registry.Ready(ctx) != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	return &healthpb.HealthCheckResponse{Status: st}, nil
}

// gracefulStop drains in-flight RPCs until ctx ends, then forces the stop.
func gracefulStop(ctx context.Context, srv *grpc.Server) error {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
	}
	return nil
}

// listener binds synchronously on start so a busy port fails Run, then
// serves in the background. Serve errors other than a clean close surface
// from stop.
type listener struct {
	kind     string
	addr     string
	log      Logger
	serve    func(net.Listener) error
	shutdown func(context.Context) error

	mu    sync.Mutex
	bound net.Addr
	done  chan error
}

func newListener(kind, addr string, log Logger, serve func(net.Listener) error, shutdown func(context.Context) error) *listener {
	if log == nil {
		log = NewNoopLogger()
	}
	return &listener{kind: kind, addr: addr, log: log, serve: serve, shutdown: shutdown, done: make(chan error, 1)}
}

func (m *Micro) addServer(l *listener) {
	m.listeners = append(m.listeners, l)
	m.servers = append(m.servers, stage{name: l.kind + " server", start: l.start, stop: l.stop})
}

func (l *listener) start(context.Context) error {
	lis, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}
	l.mu.Lock()
	l.bound = lis.Addr()
	l.mu.Unlock()
	l.log.Info(l.kind+" server listening", "addr", lis.Addr().String())

	go func() {
		err := l.serve(lis)
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
		if err != nil {
			l.log.Error(l.kind+" server failed", "error", err)
		}
		l.done <- err
	}()
	return nil
}

func (l *listener) stop(ctx context.Context) error {
	err := l.shutdown(ctx)
	select {
	case serveErr := <-l.done:
		err = errors.Join(err, serveErr)
	case <-ctx.Done():
	}
	return err
}

// Addr is the bound address once started, or nil.
func (l *listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bound
}

// NormalizePort turns "3000" into ":3000". Empty values take fallback and
// values that already hold a colon are kept.
func NormalizePort(port, fallback string) string {
	p := strings.TrimSpace(port)
	if p == "" {
		p = strings.TrimSpace(fallback)
	}
	if p == "" || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}
