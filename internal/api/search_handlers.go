package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/onnwee/talentdir/internal/blob"
	"github.com/onnwee/talentdir/internal/directory"
	"github.com/onnwee/talentdir/internal/middleware"
	"github.com/onnwee/talentdir/internal/profile"
)

// Query parameters of GET /search/profiles.
const (
	paramCategory    = "category"
	paramSearchTerm  = "q"
	paramLanguages   = "languages"
	paramExpertise   = "expertise"
	paramMemberships = "memberships"
	paramExcludeSelf = "exclude_self"
)

// PictureSigner turns a stored picture key into a short-lived URL.
// *blob.Service implements it.
type PictureSigner interface {
	PresignGet(ctx context.Context, key string) (*blob.PresignedURL, error)
}

// SearchHandlers holds dependencies for search HTTP handlers.
type SearchHandlers struct {
	searcher directory.Searcher
	signer   PictureSigner
	logger   *slog.Logger
}

// NewSearchHandlers creates a new SearchHandlers instance.
// signer may be nil, in which case stored picture keys are not resolved.
func NewSearchHandlers(searcher directory.Searcher, signer PictureSigner, logger *slog.Logger) *SearchHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandlers{
		searcher: searcher,
		signer:   signer,
		logger:   logger,
	}
}

// ProfileResult is one directory entry in a search response.
type ProfileResult struct {
	*profile.Profile

	// ProfilePictureURL is a fetchable picture URL: the stored value when it
	// is already absolute, otherwise a presigned URL for the stored key.
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`

	// Completeness is the ranking score (count of filled fields).
	Completeness int `json:"completeness"`
}

// ProfileSearchResponse is the body of GET /search/profiles.
type ProfileSearchResponse struct {
	Results  []*ProfileResult      `json:"results"`
	Count    int                   `json:"count"`
	Loading  bool                  `json:"loading"`
	Error    bool                  `json:"error"`
	Message  string                `json:"message,omitempty"`
	Warnings []string              `json:"warnings"`
	Filter   directory.FilterState `json:"filter"`
}

// SearchProfiles handles GET /search/profiles.
//
// Filter problems never fail the request: they come back as warnings and the
// search runs with the sanitized input. A store failure is reported as a 200
// with error=true and a generic message.
func (h *SearchHandlers) SearchProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()

	viewer := directory.Viewer{UserID: middleware.GetUserID(r.Context())}
	if raw := query.Get(paramExcludeSelf); raw != "" {
		excludeSelf, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "exclude_self must be a boolean")
			return
		}
		viewer.ExcludeSelf = excludeSelf
	}

	filter := parseFilter(query)
	result := h.searcher.Search(r.Context(), filter, viewer)

	response := ProfileSearchResponse{
		Results:  make([]*ProfileResult, 0, len(result.Results)),
		Loading:  result.Loading,
		Error:    result.Error,
		Warnings: result.Warnings,
		Filter:   result.Filter,
	}
	if response.Warnings == nil {
		response.Warnings = []string{}
	}
	if result.Error {
		middleware.SetErrorCode(r.Context(), ErrCodeStoreUnavailable)
		response.Message = directory.MessageSearchFailed
	}

	for _, p := range result.Results {
		response.Results = append(response.Results, &ProfileResult{
			Profile:           p,
			ProfilePictureURL: h.pictureURL(r.Context(), p),
			Completeness:      directory.CompletenessScore(p),
		})
	}
	response.Count = len(response.Results)

	writeJSON(w, http.StatusOK, response)
}

// parseFilter reads a FilterState from query parameters. Facet parameters
// accept comma-separated values, repeated parameters, or both.
func parseFilter(query url.Values) directory.FilterState {
	filter := directory.DefaultFilterState()
	if c := query.Get(paramCategory); c != "" {
		filter.Category = c
	}
	filter.SearchTerm = query.Get(paramSearchTerm)
	filter.Languages = splitValues(query[paramLanguages])
	filter.AreasOfExpertise = splitValues(query[paramExpertise])
	filter.Memberships = splitValues(query[paramMemberships])
	return filter
}

func splitValues(params []string) []string {
	values := make([]string, 0, len(params))
	for _, p := range params {
		values = append(values, strings.Split(p, ",")...)
	}
	return values
}

func (h *SearchHandlers) pictureURL(ctx context.Context, p *profile.Profile) string {
	ref := profile.StringValue(p.ProfilePicture)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return ref
	}
	if h.signer == nil {
		return ""
	}

	signed, err := h.signer.PresignGet(ctx, ref)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to presign profile picture",
			slog.String("profile_id", p.ID),
			slog.String("error", err.Error()))
		return ""
	}
	return signed.URL
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
