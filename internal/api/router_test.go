package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/talentdir/internal/auth"
	"github.com/onnwee/talentdir/internal/directory"
	"github.com/onnwee/talentdir/internal/middleware"
)

func newTestRouter(t *testing.T, jwt *auth.JWTService) http.Handler {
	t.Helper()
	repo := newSearchRepo(t)
	engine := directory.NewEngine(repo, directory.EngineConfig{Logger: discardLogger()})
	catalog := directory.NewCatalogService(repo, directory.CatalogServiceConfig{Logger: discardLogger()})

	store := middleware.NewInMemoryRateLimitStore()
	searchLimit := middleware.RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}

	mux := NewRouter(RouterConfig{
		Search:        NewSearchHandlers(engine, nil, discardLogger()),
		Facets:        NewFacetHandlers(catalog, discardLogger()),
		Health:        NewHealthHandlers(HealthHandlersConfig{}),
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
		SearchLimiter: middleware.RateLimiter(store, searchLimit, middleware.UserKeyFunc(), nil),
	})
	return middleware.OptionalAuth(jwt, discardLogger())(mux)
}

func TestRouter_Routes(t *testing.T) {
	jwt := auth.NewJWTService(auth.Config{Secret: "router-test-secret-at-least-32-bytes"})
	adminToken, err := jwt.GenerateAccessToken("admin-1", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	memberToken, err := jwt.GenerateAccessToken("user-1", auth.RoleMember)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "root", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
		{name: "unknown path", method: http.MethodGet, path: "/events", wantStatus: http.StatusNotFound},
		{name: "search", method: http.MethodGet, path: "/search/profiles?category=Speaker", wantStatus: http.StatusOK},
		{name: "facets", method: http.MethodGet, path: "/facets", wantStatus: http.StatusOK},
		{name: "refresh anonymous", method: http.MethodPost, path: "/facets/refresh", wantStatus: http.StatusUnauthorized},
		{name: "refresh member", method: http.MethodPost, path: "/facets/refresh", token: memberToken, wantStatus: http.StatusForbidden},
		{name: "refresh admin", method: http.MethodPost, path: "/facets/refresh", token: adminToken, wantStatus: http.StatusOK},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "ready", method: http.MethodGet, path: "/ready", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
	}

	router := newTestRouter(t, jwt)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_SearchRateLimited(t *testing.T) {
	jwt := auth.NewJWTService(auth.Config{Secret: "router-test-secret-at-least-32-bytes"})
	router := newTestRouter(t, jwt)

	var last int
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/search/profiles", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third search status = %d, want 429", last)
	}

	// Other routes are not limited.
	req := httptest.NewRequest(http.MethodGet, "/facets", nil)
	req.RemoteAddr = "192.0.2.10:4000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("facets status = %d, want 200", w.Code)
	}
}
