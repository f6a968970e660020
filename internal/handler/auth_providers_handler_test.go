package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func providersFor(t *testing.T, cfg ProvidersConfig) []string {
	t.Helper()
	h := NewProvidersHandler(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/providers", nil)
	rec := httptest.NewRecorder()
	h.Providers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp providersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Providers
}

// TestProvidersHandler_PasswordOnly verifies that only password login is
// listed when no OAuth client is configured.
func TestProvidersHandler_PasswordOnly(t *testing.T) {
	got := providersFor(t, ProvidersConfig{})
	if !slices.Equal(got, []string{"password"}) {
		t.Errorf("expected [password], got %v", got)
	}
}

func TestProvidersHandler_AllConfigured(t *testing.T) {
	got := providersFor(t, ProvidersConfig{GoogleClientID: "g", GitHubClientID: "gh"})
	if !slices.Equal(got, []string{"password", "google", "github"}) {
		t.Errorf("unexpected providers %v", got)
	}
}

func TestProvidersHandler_GitHubOnly(t *testing.T) {
	got := providersFor(t, ProvidersConfig{GitHubClientID: "gh"})
	if !slices.Equal(got, []string{"password", "github"}) {
		t.Errorf("unexpected providers %v", got)
	}
}
