package handler

import (
	"net/http"

	"github.com/minicrm/backend/internal/metrics"
	"github.com/minicrm/backend/pkg/auth"
)

// Routes bundles the handlers and middleware settings served by the API.
type Routes struct {
	Base      *Handler
	Auth      *AuthHandler
	Providers *ProvidersHandler
	Me        *MeHandler
	Contacts  *ContactHandler
	Messages  *MessageHandler
	Admin     *AdminUserHandler

	Sessions   auth.SessionValidator
	Principals auth.PrincipalLoader

	// LoginLimiter throttles register and login per client IP. Nil disables it.
	LoginLimiter *IPRateLimiter
	// CSRF enables token checks on unsafe methods when non-nil.
	CSRF              *CSRFConfig
	PrometheusEnabled bool
}

// NewRouter registers every endpoint and wraps the mux in the middleware chain.
func NewRouter(rt Routes) http.Handler {
	mux := http.NewServeMux()

	limited := func(next http.HandlerFunc) http.Handler {
		if rt.LoginLimiter == nil {
			return next
		}
		return rt.LoginLimiter.Middleware(next)
	}
	requireAuth := auth.RequireAuth(rt.Sessions, rt.Principals)
	authed := func(next http.HandlerFunc) http.Handler {
		return requireAuth(next)
	}

	mux.HandleFunc("GET /api/health", rt.Base.Health)
	if rt.PrometheusEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	if rt.CSRF != nil {
		mux.HandleFunc("GET /api/csrf", CSRFToken)
	}

	// Auth
	mux.HandleFunc("GET /api/auth/providers", rt.Providers.Providers)
	mux.Handle("POST /api/auth/register", limited(rt.Auth.Register))
	mux.Handle("POST /api/auth/login", limited(rt.Auth.Login))
	mux.Handle("POST /api/auth/logout", authed(rt.Auth.Logout))
	mux.HandleFunc("GET /api/auth/google/login", rt.Auth.GoogleLoginURL)
	mux.HandleFunc("GET /api/auth/google/callback", rt.Auth.GoogleCallback)
	mux.HandleFunc("GET /api/auth/github/login", rt.Auth.GitHubLoginURL)
	mux.HandleFunc("GET /api/auth/github/callback", rt.Auth.GitHubCallback)

	mux.Handle("GET /api/me", authed(rt.Me.Me))
	mux.Handle("GET /api/whoami", authed(rt.Me.WhoAmI))

	// Contacts
	mux.Handle("GET /api/contacts", authed(rt.Contacts.List))
	mux.Handle("POST /api/contacts", authed(rt.Contacts.Create))
	mux.Handle("GET /api/contacts/{id}", authed(rt.Contacts.Get))
	mux.Handle("PUT /api/contacts/{id}", authed(rt.Contacts.Update))
	mux.Handle("DELETE /api/contacts/{id}", authed(rt.Contacts.Delete))

	// Messages
	mux.Handle("GET /api/contacts/{id}/messages", authed(rt.Messages.ListForContact))
	mux.Handle("GET /api/contacts/{id}/messages/draft", authed(rt.Messages.Draft))
	mux.Handle("POST /api/contacts/{id}/messages", authed(rt.Messages.Create))
	mux.Handle("DELETE /api/messages/{id}", authed(rt.Messages.Delete))

	// Admin routes (role and mode checks live in the service)
	mux.Handle("GET /api/admin/users", authed(rt.Admin.List))
	mux.Handle("POST /api/admin/users/{id}/admin", authed(rt.Admin.GrantAdmin))
	mux.Handle("DELETE /api/admin/users/{id}/admin", authed(rt.Admin.RevokeAdmin))

	var h http.Handler = mux
	if rt.CSRF != nil {
		h = CSRF(*rt.CSRF)(h)
	}
	h = rt.Base.CORS(h)
	h = SecurityHeaders(h)
	h = RequestLogger(h)
	h = metrics.Middleware(mux)(h)
	return Recoverer(h)
}
