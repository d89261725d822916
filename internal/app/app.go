package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielnirn/shopping-api/internal/micro"
	"github.com/danielnirn/shopping-api/internal/micro/middleware"
	"github.com/danielnirn/shopping-api/internal/seed"
	"github.com/danielnirn/shopping-api/internal/shoppinglist"
	"github.com/danielnirn/shopping-api/internal/telemetry"
)

const (
	Name    = "shopping-api"
	Version = "v0.1.0"
)

// App is a wired service ready to run.
type App struct {
	micro    *micro.Micro
	store    shoppinglist.Store
	settings Settings
	logger   micro.Logger
}

// Run loads configuration from args and the environment, builds the service
// and blocks until ctx is cancelled.
func Run(ctx context.Context, args []string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	settings, err := DecodeSettings(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a, err := New(ctx, cfg, settings)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// New builds the store, the shopping list module and the transports.
// Resources acquired before a failure are released.
func New(ctx context.Context, cfg *micro.Config, s Settings) (_ *App, err error) {
	logger, err := NewLogger(s.Log)
	if err != nil {
		return nil, err
	}
	logger = logger.With("service", Name, "env", s.Env)

	var cleanup []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			_ = cleanup[i](context.WithoutCancel(ctx))
		}
	}()

	opts := []micro.Option{
		micro.WithConfig(cfg),
		micro.WithLogger(logger),
		micro.WithErrorReporter(micro.NewLogErrorReporter(logger)),
	}
	if s.Shutdown.Timeout > 0 {
		opts = append(opts, micro.WithShutdownTimeout(s.Shutdown.Timeout))
	}
	if syncer, ok := logger.(interface{ Sync() error }); ok {
		opts = append(opts, micro.WithShutdown(func(context.Context) error {
			_ = syncer.Sync()
			return nil
		}))
	}

	var tracer micro.Tracer = micro.NoopTracer{}
	var metrics micro.Metrics = micro.NoopMetrics{}
	var httpMiddleware []func(http.Handler) http.Handler
	if s.Tracing.Enabled {
		tcfg := telemetry.Config{
			ServiceName: Name,
			Environment: s.Env,
			Version:     Version,
			SampleRatio: s.Tracing.Ratio,
		}
		t, shutdown, err := telemetry.Setup(ctx, tcfg)
		if err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
		cleanup = append(cleanup, shutdown)
		tracer = t
		httpMiddleware = append(httpMiddleware, telemetry.NewHTTPMiddleware(t))
		opts = append(opts, micro.WithTracer(t), micro.WithShutdown(shutdown))

		m, shutdownMetrics, err := telemetry.SetupMetrics(ctx, tcfg)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		cleanup = append(cleanup, shutdownMetrics)
		metrics = m
		opts = append(opts, micro.WithMetrics(m), micro.WithShutdown(shutdownMetrics))
		logger.Info("telemetry enabled", "ratio", s.Tracing.Ratio)
	}

	store, client, err := openStore(ctx, s, logger)
	if err != nil {
		return nil, err
	}
	if client != nil {
		cleanup = append(cleanup, client.Disconnect)
		opts = append(opts, micro.WithLifecycle(client))
	}

	if s.Seed.Enabled {
		opts = append(opts, micro.WithLifecycle(seed.Hooks(store, s.Seed.Path, logger.With("component", "seed"))))
	}

	service := shoppinglist.NewService(store, logger.With("component", "shoppinglist"), tracer)
	handler := shoppinglist.NewHandler(service, logger, s.Env)

	cors := middleware.DefaultCORSOptions()
	if len(s.CORS.Origins) > 0 {
		cors.AllowedOrigins = s.CORS.Origins
	}
	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:          logger,
		Metrics:         metrics,
		Errors:          micro.NewLogErrorReporter(logger),
		TimeoutDuration: s.HTTP.Timeout,
		CORSOptions:     &cors,
	})

	opts = append(opts,
		micro.WithHTTPMiddleware(append(stack, httpMiddleware...)...),
		micro.WithRouterConfigurator(micro.UseJSONFallbacks),
		micro.WithHealthChecks("shoppinglist"),
		micro.WithDebugRoutes(s.Debug.Routes, middleware.InternalOnly()),
		micro.WithHTTPServer("http.port", handler),
	)
	if s.GRPC.Enabled {
		opts = append(opts, micro.WithGRPCServer("grpc.port"))
	}

	ms, err := micro.Build(opts...)
	if err != nil {
		return nil, err
	}
	return &App{micro: ms, store: store, settings: s, logger: logger}, nil
}

// Run blocks until ctx is cancelled and the service has stopped.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting", "version", Version, "http", a.settings.HTTP.Port, "store", a.settings.Store.Driver)
	return a.micro.Run(ctx)
}

// Micro exposes the underlying orchestrator.
func (a *App) Micro() *micro.Micro { return a.micro }

// openStore returns the configured store. The Mongo client is nil for the
// memory driver.
func openStore(ctx context.Context, s Settings, logger micro.Logger) (shoppinglist.Store, *micro.MongoClient, error) {
	switch strings.ToLower(s.Store.Driver) {
	case DriverMemory:
		logger.Info("using in-memory store")
		return shoppinglist.NewMemoryStore(), nil, nil
	case DriverMongo:
		client, err := micro.NewMongoClient(ctx, micro.MongoConfig{
			URI:            s.Mongo.URI,
			Database:       s.Mongo.Database,
			ConnectTimeout: s.Mongo.Timeout,
			AppName:        Name,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := shoppinglist.NewMongoStore(client.Collection(s.Mongo.Collection))
		if err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, nil, err
		}
		logger.Info("connected to mongo", "uri", MaskURI(s.Mongo.URI), "database", client.Database())
		return store, client, nil
	default:
		return nil, nil, errors.New("unknown store driver " + s.Store.Driver)
	}
}

// NewLogger builds the configured logging backend.
func NewLogger(s LogSettings) (micro.Logger, error) {
	switch strings.ToLower(s.Backend) {
	case "zap":
		return micro.NewZapLogger(s.Level, s.Format), nil
	case "", "slog":
		return micro.NewFormattedLogger(s.Level, s.Format), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", s.Backend)
	}
}
