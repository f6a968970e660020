package handler

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/pkg/auth"
)

// MeHandler reports the caller's own identity.
type MeHandler struct {
	userRepo repository.UserRepository
	errs     Errors
}

// NewMeHandler creates a MeHandler.
func NewMeHandler(userRepo repository.UserRepository, errs Errors) *MeHandler {
	return &MeHandler{userRepo: userRepo, errs: errs}
}

// meResponse is the body of GET /api/me.
type meResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Me handles GET /api/me.
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.userRepo.FindByID(r.Context(), p.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Roles:     roleNames(p.Roles),
		IsAdmin:   p.IsAdmin(),
		CreatedAt: user.CreatedAt,
	})
}

// WhoAmI handles GET /api/whoami with a plain-text summary of the caller,
// handy for checking a grant or revoke from a terminal.
func (h *MeHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	roles := roleNames(p.Roles)
	if len(roles) == 0 {
		roles = []string{"(none)"}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "user: %s\nid: %s\nroles: %s\nadmin: %t\n", p.Email, p.UserID, strings.Join(roles, ", "), p.IsAdmin())
}

func roleNames(roles []auth.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	slices.Sort(names)
	return names
}
