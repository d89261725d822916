package micro

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountDebugRoutes(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/b", func(http.ResponseWriter, *http.Request) {})
	r.Post("/a", func(http.ResponseWriter, *http.Request) {})
	MountDebugRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/routes", nil))

	var routes []RouteInfo
	if err := json.NewDecoder(rec.Body).Decode(&routes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("routes = %d, want 3: %+v", len(routes), routes)
	}
	if routes[0].Pattern != "/a" || routes[0].Method != http.MethodPost {
		t.Errorf("routes not sorted: %+v", routes)
	}
}

func TestMountDebugRoutesGuarded(t *testing.T) {
	r := chi.NewRouter()
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}
	MountDebugRoutes(r, deny)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/routes", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
