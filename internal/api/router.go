package api

import (
	"net/http"

	"github.com/onnwee/talentdir/internal/middleware"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// RouterConfig holds the handlers and per-route middleware mounted by NewRouter.
type RouterConfig struct {
	Search  *SearchHandlers
	Facets  *FacetHandlers
	Health  *HealthHandlers
	Metrics http.Handler

	// GlobalLimiter guards every API route except health and metrics. Optional.
	GlobalLimiter Middleware

	// SearchLimiter guards /search/profiles. Optional.
	SearchLimiter Middleware

	// AdminLimiter guards /facets/refresh. Optional.
	AdminLimiter Middleware
}

// NewRouter builds the API mux. Identity must already be in the request
// context (see middleware.OptionalAuth); /facets/refresh requires an admin.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Route not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"service": "talentdir"})
	}), cfg.GlobalLimiter))

	mux.Handle("/search/profiles", chain(http.HandlerFunc(cfg.Search.SearchProfiles), cfg.GlobalLimiter, cfg.SearchLimiter))
	mux.Handle("/facets", chain(http.HandlerFunc(cfg.Facets.GetFacets), cfg.GlobalLimiter))
	mux.Handle("/facets/refresh", chain(http.HandlerFunc(cfg.Facets.RefreshFacets), cfg.GlobalLimiter, middleware.RequireAdmin, cfg.AdminLimiter))

	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	return mux
}

// chain applies mws so the first one runs outermost. Nil entries are skipped.
func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
