package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"

	"github.com/minicrm/backend/internal/metrics"
)

// CSRFConfig configures the CSRF protection for cookie-authenticated writes.
type CSRFConfig struct {
	AuthKey        []byte
	Secure         bool
	TrustedOrigins []string
}

// CSRF returns middleware rejecting unsafe requests that lack a valid
// X-CSRF-Token header. Tokens are issued by CSRFToken.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		cfg.AuthKey,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(originHosts(cfg.TrustedOrigins)),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	slog.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	metrics.ObserveAuthFailure("csrf")
	writeError(w, http.StatusForbidden, "csrf_failed")
}

type csrfResponse struct {
	Token string `json:"token"`
}

// CSRFToken handles GET /api/csrf.
func CSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-CSRF-Token", csrf.Token(r))
	writeJSON(w, http.StatusOK, csrfResponse{Token: csrf.Token(r)})
}

// originHosts reduces configured origins to the host[:port] form the CSRF
// origin check compares against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		if o != "" {
			hosts = append(hosts, o)
		}
	}
	return hosts
}
