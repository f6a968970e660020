package handler

import (
	"net/http"
)

// ProvidersConfig holds the configuration that determines which auth providers are enabled.
type ProvidersConfig struct {
	// GoogleClientID: include "google" when non-empty (GOOGLE_CLIENT_ID env var)
	GoogleClientID string
	// GitHubClientID: include "github" when non-empty (GITHUB_CLIENT_ID env var)
	GitHubClientID string
}

// ProvidersHandler handles GET /api/auth/providers
type ProvidersHandler struct {
	cfg ProvidersConfig
}

// NewProvidersHandler creates a ProvidersHandler with the given configuration.
func NewProvidersHandler(cfg ProvidersConfig) *ProvidersHandler {
	return &ProvidersHandler{cfg: cfg}
}

type providersResponse struct {
	Providers []string `json:"providers"`
}

// Providers handles GET /api/auth/providers.
// Password login is always available and listed first.
func (h *ProvidersHandler) Providers(w http.ResponseWriter, r *http.Request) {
	providers := []string{"password"}
	if h.cfg.GoogleClientID != "" {
		providers = append(providers, "google")
	}
	if h.cfg.GitHubClientID != "" {
		providers = append(providers, "github")
	}
	writeJSON(w, http.StatusOK, providersResponse{Providers: providers})
}
