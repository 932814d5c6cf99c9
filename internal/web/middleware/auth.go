package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/markupload/internal/auth"
)

// Authenticate verifies the bearer token and stores the caller's identity
// in the request context. Requests without a valid token get 401.
func Authenticate(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.VerifyHeader(r.Header.Get("Authorization"))
			if err != nil {
				code := "AUTH_INVALID_TOKEN"
				if errors.Is(err, auth.ErrMissingToken) {
					code = "AUTH_MISSING_TOKEN"
				}
				slog.Warn("auth: rejected request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="markupload"`)
				writeAuthError(w, http.StatusUnauthorized, "authentication required", code)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers whose role is not in roles with 403.
// It must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok || !id.HasRole(roles...) {
				slog.Warn("auth: insufficient role",
					"path", r.URL.Path,
					"user_id", id.UserID,
					"role", id.Role,
				)
				writeAuthError(w, http.StatusForbidden, "insufficient permissions", "AUTH_FORBIDDEN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `","code":"` + code + `"}`))
}
