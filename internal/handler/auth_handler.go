package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/minicrm/backend/internal/metrics"
	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/service"
	"github.com/minicrm/backend/pkg/auth"
)

const oauthStateCookieName = "oauth_state"

// generateOAuthState returns a random state value for the OAuth round trip.
func generateOAuthState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// setStateCookie stores state in an HttpOnly cookie.
func setStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// verifyOAuthState compares the state cookie with the query parameter.
func verifyOAuthState(r *http.Request) bool {
	cookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return cookie.Value == r.URL.Query().Get("state")
}

// clearStateCookie removes the state cookie.
func clearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		Expires:  time.Unix(0, 0),
	})
}

var githubEndpoint = oauth2.Endpoint{
	AuthURL:  "https://github.com/login/oauth/authorize",
	TokenURL: "https://github.com/login/oauth/access_token",
}

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubAPIBase     = "https://api.github.com"
)

// SessionStarter creates and ends login sessions.
type SessionStarter interface {
	CreateSession(ctx context.Context, userID string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	authService  service.AuthService
	sessions     SessionStarter
	googleConfig *oauth2.Config
	githubConfig *oauth2.Config
	frontendURL  string
	secure       bool
	errs         Errors

	googleUserInfoURL string
	githubAPIBase     string
}

// AuthConfig configures AuthHandler.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	BackendURL         string
	FrontendURL        string
	// SecureCookies sets the Secure flag on session and state cookies.
	SecureCookies bool
	Errors        Errors
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService service.AuthService, sessions SessionStarter, cfg AuthConfig) *AuthHandler {
	redirectBase := cfg.BackendURL
	if redirectBase == "" {
		redirectBase = "http://localhost:8080"
	}

	googleConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  redirectBase + "/api/auth/google/callback",
		Scopes:       []string{"profile", "email"},
		Endpoint:     google.Endpoint,
	}

	githubConfig := &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  redirectBase + "/api/auth/github/callback",
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     githubEndpoint,
	}

	return &AuthHandler{
		authService:       authService,
		sessions:          sessions,
		googleConfig:      googleConfig,
		githubConfig:      githubConfig,
		frontendURL:       cfg.FrontendURL,
		secure:            cfg.SecureCookies,
		errs:              cfg.Errors,
		googleUserInfoURL: googleUserInfoURL,
		githubAPIBase:     githubAPIBase,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User *model.User `json:"user"`
}

// Register handles POST /api/auth/register and signs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, err := h.authService.Register(r.Context(), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if err := h.startSession(w, r, user.ID); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{User: user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			metrics.ObserveAuthFailure("invalid_credentials")
		}
		h.errs.Write(w, r, err)
		return
	}
	if err := h.startSession(w, r, user.ID); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, err := h.sessions.CreateSession(r.Context(), userID)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, sess.Token, sess.ExpiresAt, h.secure)
	return nil
}

// googleUserInfo is the Google userinfo response.
type googleUserInfo struct {
	Sub   string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleLoginURL handles GET /api/auth/google/login.
func (h *AuthHandler) GoogleLoginURL(w http.ResponseWriter, r *http.Request) {
	h.loginURL(w, h.googleConfig)
}

// GitHubLoginURL handles GET /api/auth/github/login.
func (h *AuthHandler) GitHubLoginURL(w http.ResponseWriter, r *http.Request) {
	h.loginURL(w, h.githubConfig)
}

func (h *AuthHandler) loginURL(w http.ResponseWriter, cfg *oauth2.Config) {
	if cfg.ClientID == "" {
		writeError(w, http.StatusNotFound, "provider_disabled")
		return
	}
	state, err := generateOAuthState()
	if err != nil {
		slog.Error("generate oauth state failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	setStateCookie(w, state, h.secure)
	writeJSON(w, http.StatusOK, map[string]string{"url": cfg.AuthCodeURL(state)})
}

// exchange validates the state and trades the code for an HTTP client
// authorised as the user. On failure it redirects and returns nil.
func (h *AuthHandler) exchange(w http.ResponseWriter, r *http.Request, cfg *oauth2.Config) *http.Client {
	if !verifyOAuthState(r) {
		clearStateCookie(w, h.secure)
		h.failRedirect(w, r, "invalid_state")
		return nil
	}
	clearStateCookie(w, h.secure)

	code := r.URL.Query().Get("code")
	if code == "" {
		h.failRedirect(w, r, "no_code")
		return nil
	}

	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("oauth code exchange failed", "error", err)
		h.failRedirect(w, r, "exchange_failed")
		return nil
	}
	return cfg.Client(r.Context(), token)
}

func (h *AuthHandler) failRedirect(w http.ResponseWriter, r *http.Request, code string) {
	metrics.ObserveAuthFailure("oauth_" + code)
	http.Redirect(w, r, h.frontendURL+"/?error="+code, http.StatusFound)
}

func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, user *model.User) {
	if err := h.startSession(w, r, user.ID); err != nil {
		slog.Error("create session failed", "user_id", user.ID, "error", err)
		h.failRedirect(w, r, "session_failed")
		return
	}
	http.Redirect(w, r, h.frontendURL+"/", http.StatusFound)
}

// GoogleCallback handles GET /api/auth/google/callback.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	client := h.exchange(w, r, h.googleConfig)
	if client == nil {
		return
	}

	var info googleUserInfo
	if err := getJSON(client, h.googleUserInfoURL, &info); err != nil {
		slog.Warn("google userinfo failed", "error", err)
		h.failRedirect(w, r, "userinfo_failed")
		return
	}

	user, err := h.authService.GetOrCreateUserFromGoogle(r.Context(), &service.GoogleUserInfo{
		Sub:   info.Sub,
		Email: info.Email,
		Name:  info.Name,
	})
	if err != nil {
		slog.Error("google user lookup failed", "error", err)
		h.failRedirect(w, r, "create_user_failed")
		return
	}
	h.completeLogin(w, r, user)
}

// githubUserInfo is the GitHub /user response.
type githubUserInfo struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GitHubCallback handles GET /api/auth/github/callback.
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	client := h.exchange(w, r, h.githubConfig)
	if client == nil {
		return
	}

	var info githubUserInfo
	if err := getJSON(client, h.githubAPIBase+"/user", &info); err != nil {
		slog.Warn("github user failed", "error", err)
		h.failRedirect(w, r, "userinfo_failed")
		return
	}

	// email is null when private; fall back to /user/emails
	if info.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(client, h.githubAPIBase+"/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					info.Email = e.Email
					break
				}
			}
		}
	}
	if info.Email == "" {
		h.failRedirect(w, r, "email_required")
		return
	}

	user, err := h.authService.GetOrCreateUserFromGitHub(r.Context(), &service.GitHubUserInfo{
		ID:    info.ID,
		Login: info.Login,
		Email: info.Email,
		Name:  info.Name,
	})
	if err != nil {
		slog.Error("github user lookup failed", "error", err)
		h.failRedirect(w, r, "create_user_failed")
		return
	}
	h.completeLogin(w, r, user)
}

func getJSON(client *http.Client, url string, dst any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New(resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName()); err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
			slog.Warn("delete session failed", "error", err)
		}
	}
	auth.ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
