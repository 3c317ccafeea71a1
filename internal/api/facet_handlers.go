package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/talentdir/internal/directory"
	"github.com/onnwee/talentdir/internal/middleware"
)

// CatalogSource serves and rebuilds the facet catalog.
// *directory.CatalogService implements it.
type CatalogSource interface {
	Get(ctx context.Context) (directory.FacetCatalog, error)
	Refresh(ctx context.Context) (directory.FacetCatalog, error)
}

// FacetHandlers holds dependencies for facet catalog handlers.
type FacetHandlers struct {
	catalog CatalogSource
	logger  *slog.Logger
}

// NewFacetHandlers creates a new FacetHandlers instance.
func NewFacetHandlers(catalog CatalogSource, logger *slog.Logger) *FacetHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &FacetHandlers{
		catalog: catalog,
		logger:  logger,
	}
}

// FacetCatalogResponse is the body of GET /facets and POST /facets/refresh.
type FacetCatalogResponse struct {
	Languages        []string   `json:"languages"`
	AreasOfExpertise []string   `json:"areas_of_expertise"`
	Memberships      []string   `json:"memberships"`
	BuiltAt          *time.Time `json:"built_at,omitempty"`
	Error            bool       `json:"error"`
}

func newFacetCatalogResponse(c directory.FacetCatalog, failed bool) FacetCatalogResponse {
	resp := FacetCatalogResponse{
		Languages:        c.Languages,
		AreasOfExpertise: c.AreasOfExpertise,
		Memberships:      c.Memberships,
		Error:            failed,
	}
	if resp.Languages == nil {
		resp.Languages = []string{}
	}
	if resp.AreasOfExpertise == nil {
		resp.AreasOfExpertise = []string{}
	}
	if resp.Memberships == nil {
		resp.Memberships = []string{}
	}
	if !c.BuiltAt.IsZero() {
		builtAt := c.BuiltAt
		resp.BuiltAt = &builtAt
	}
	return resp
}

// GetFacets handles GET /facets. A build failure is reported as a 200 with
// empty lists and error=true, matching the search contract.
func (h *FacetHandlers) GetFacets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	catalog, err := h.catalog.Get(r.Context())
	if err != nil {
		middleware.SetErrorCode(r.Context(), ErrCodeStoreUnavailable)
		writeJSON(w, http.StatusOK, newFacetCatalogResponse(directory.EmptyFacetCatalog(), true))
		return
	}
	writeJSON(w, http.StatusOK, newFacetCatalogResponse(catalog, false))
}

// RefreshFacets handles POST /facets/refresh (admin only). The route must be
// wrapped in middleware.RequireAdmin.
func (h *FacetHandlers) RefreshFacets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	catalog, err := h.catalog.Refresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual facet catalog refresh failed",
			slog.String("user_id", middleware.GetUserID(r.Context())),
			slog.String("error", err.Error()))
		WriteError(w, r.Context(), http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Facet catalog could not be rebuilt")
		return
	}

	h.logger.InfoContext(r.Context(), "facet catalog refreshed",
		slog.String("user_id", middleware.GetUserID(r.Context())))
	writeJSON(w, http.StatusOK, newFacetCatalogResponse(catalog, false))
}
