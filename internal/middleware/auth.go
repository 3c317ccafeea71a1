package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/talentdir/internal/auth"
)

// Error codes set by middleware, shared with the API error envelope.
const (
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeTokenExpired = "token_expired"
	ErrCodeForbidden    = "forbidden"
	ErrCodeRateLimited  = "rate_limited"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// OptionalAuth reads an "Authorization: Bearer" header when present and stores
// the caller's identity in the context. Requests without the header pass
// through anonymously; a header carrying a bad or expired token is rejected
// with 401 so clients learn to refresh instead of silently losing identity.
func OptionalAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authorization header must use the Bearer scheme")
				return
			}

			claims, err := validator.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				code := ErrCodeUnauthorized
				if errors.Is(err, auth.ErrExpiredToken) {
					code = ErrCodeTokenExpired
				}
				logger.Debug("bearer token rejected",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("reason", code))
				writeError(w, r, http.StatusUnauthorized, code, "Invalid or expired token")
				return
			}

			ctx := SetUser(r.Context(), claims.UserID(), claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserRole(r.Context()) != auth.RoleAdmin {
			writeError(w, r, http.StatusForbidden, ErrCodeForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// writeError writes the API error envelope and records code for the access log.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	SetErrorCode(r.Context(), code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
