package micro

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthCheck returns nil while the checked dependency is usable.
type HealthCheck func(context.Context) error

// HealthStatusOK always passes.
func HealthStatusOK(context.Context) error { return nil }

// HealthRegistry holds named liveness and readiness probes.
type HealthRegistry struct {
	mu    sync.RWMutex
	live  map[string]HealthCheck
	ready map[string]HealthCheck
}

func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{live: map[string]HealthCheck{}, ready: map[string]HealthCheck{}}
}

// Add registers the non-nil probes under name, replacing earlier ones.
func (h *HealthRegistry) Add(name string, liveness, readiness HealthCheck) {
	if name == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if liveness != nil {
		h.live[name] = liveness
	}
	if readiness != nil {
		h.ready[name] = readiness
	}
}

// Ready fails with the first failing readiness probe, by name order.
func (h *HealthRegistry) Ready(ctx context.Context) error {
	for _, r := range h.run(ctx, &h.ready) {
		if r.Error != "" {
			return fmt.Errorf("%s: %s", r.Name, r.Error)
		}
	}
	return nil
}

// Mount serves /healthz and /livez from liveness probes, /readyz from
// readiness probes, and a plain /ping.
func (h *HealthRegistry) Mount(r chi.Router) {
	r.Get("/healthz", h.handler(&h.live))
	r.Get("/livez", h.handler(&h.live))
	r.Get("/readyz", h.handler(&h.ready))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

// ProbeResult is one probe outcome in a ProbeResponse.
type ProbeResult struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// ProbeResponse is the body of the probe endpoints. Status is "ok" or
// "degraded".
type ProbeResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Results   []ProbeResult `json:"results,omitempty"`
}

func (h *HealthRegistry) handler(set *map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := ProbeResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}
		body.Results = h.run(r.Context(), set)
		code := http.StatusOK
		for _, res := range body.Results {
			if res.Error != "" {
				body.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, body)
	}
}

func (h *HealthRegistry) run(ctx context.Context, set *map[string]HealthCheck) []ProbeResult {
	h.mu.RLock()
	names := make([]string, 0, len(*set))
	checks := make(map[string]HealthCheck, len(*set))
	for name, check := range *set {
		names = append(names, name)
		checks[name] = check
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make([]ProbeResult, 0, len(names))
	for _, name := range names {
		res := ProbeResult{Name: name}
		if err := checks[name](ctx); err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// StatusResponse is the body served by StatusHandler.
type StatusResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

// StatusHandler reports uptime in seconds since started and the deployment
// environment, "development" when empty. It never touches dependencies.
func StatusHandler(environment string, started time.Time) http.HandlerFunc {
	if environment == "" {
		environment = "development"
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		now := time.Now()
		writeJSON(w, http.StatusOK, StatusResponse{
			Status:      "ok",
			Timestamp:   now.UTC().Format(time.RFC3339Nano),
			Uptime:      now.Sub(started).Seconds(),
			Environment: environment,
		})
	}
}
