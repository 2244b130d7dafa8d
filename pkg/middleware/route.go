package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routePattern returns the chi pattern that matched r, or "other" outside
// a chi router or for unmatched requests.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "other"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "other"
}
