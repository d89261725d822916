package micro

import (
	"net/http"
	"reflect"
	"runtime"
	"sort"

	"github.com/go-chi/chi/v5"
)

// RouteInfo describes one route served by the router.
type RouteInfo struct {
	Method      string   `json:"method"`
	Pattern     string   `json:"pattern"`
	Middlewares []string `json:"middlewares,omitempty"`
}

// MountDebugRoutes serves GET /debug/routes, listing the routes of r sorted by
// pattern then method. guards wrap only that endpoint.
func MountDebugRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.With(guards...).Get("/debug/routes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, listRoutes(r))
	})
}

func listRoutes(r chi.Routes) []RouteInfo {
	var routes []RouteInfo
	_ = chi.Walk(r, func(method, pattern string, _ http.Handler, mws ...func(http.Handler) http.Handler) error {
		info := RouteInfo{Method: method, Pattern: pattern}
		for _, mw := range mws {
			info.Middlewares = append(info.Middlewares, runtime.FuncForPC(reflect.ValueOf(mw).Pointer()).Name())
		}
		routes = append(routes, info)
		return nil
	})
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}
