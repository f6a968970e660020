package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type contextKey string

// SessionValidator resolves a session token to a user id.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

// PrincipalLoader builds the principal (roles included) for a user id.
type PrincipalLoader interface {
	Principal(ctx context.Context, userID string) (Principal, error)
}

// RequireAuth validates the session cookie, loads the caller's roles and
// stores the resulting Principal in the request context. Roles are read on
// every request so grants and revocations apply immediately.
func RequireAuth(sv SessionValidator, pl PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName())
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w, "unauthorized")
				return
			}

			userID, err := sv.ValidateSession(r.Context(), cookie.Value)
			if err != nil {
				writeUnauthorized(w, "invalid_session")
				return
			}

			p, err := pl.Principal(r.Context(), userID)
			if err != nil {
				slog.Warn("principal lookup failed", "user_id", userID, "error", err)
				writeUnauthorized(w, "invalid_session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
