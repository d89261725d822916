package micro

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UseJSONFallbacks answers unmatched routes and methods with the standard
// error envelope instead of chi's plain-text defaults.
func UseJSONFallbacks(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		Error(w, http.StatusNotFound, "route_not_found", "Cannot "+req.Method+" "+req.URL.Path)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method "+req.Method+" not allowed on "+req.URL.Path)
	})
}
