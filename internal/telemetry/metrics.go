package telemetry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danielnirn/shopping-api/internal/micro"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const defaultMetricInterval = time.Minute

// SetupMetrics installs a global meter provider that periodically exports to
// stdout and returns a micro.Metrics backed by it, plus the provider shutdown.
func SetupMetrics(ctx context.Context, cfg Config) (*Metrics, func(context.Context) error, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []stdoutmetric.Option{}
	if cfg.Writer != nil {
		opts = append(opts, stdoutmetric.WithWriter(cfg.Writer))
	} else {
		opts = append(opts, stdoutmetric.WithPrettyPrint())
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("otel metric exporter: %w", err)
	}

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	m, err := NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	return m, mp.Shutdown, nil
}

// Metrics adapts an OpenTelemetry meter to micro.Metrics. Named counters are
// created on first use and reused afterwards.
type Metrics struct {
	meter    metric.Meter
	duration metric.Float64Histogram

	mu       sync.Mutex
	counters map[string]metric.Float64Counter
}

func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)
	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of HTTP server requests."),
	)
	if err != nil {
		return nil, fmt.Errorf("otel histogram: %w", err)
	}
	return &Metrics{
		meter:    meter,
		duration: duration,
		counters: map[string]metric.Float64Counter{},
	}, nil
}

func (m *Metrics) Counter(ctx context.Context, name string, value float64, labels map[string]string) {
	counter, err := m.counter(name)
	if err != nil {
		otel.Handle(err)
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(labelAttributes(labels)...))
}

func (m *Metrics) ObserveHTTPRequest(path, method string, status int, duration time.Duration) {
	m.duration.Record(context.Background(), duration.Seconds(), metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.response.status_code", status),
	))
}

func (m *Metrics) counter(name string) (metric.Float64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("otel counter %s: %w", name, err)
	}
	m.counters[name] = c
	return c, nil
}

func labelAttributes(labels map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, attribute.String(k, labels[k]))
	}
	return out
}

var _ micro.Metrics = (*Metrics)(nil)
