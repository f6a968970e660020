package handler

import (
	"net/http"
	"strconv"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/service"
)

// AdminUserHandler handles admin user management endpoints.
type AdminUserHandler struct {
	adminSvc service.AdminUserService
	errs     Errors
}

// NewAdminUserHandler creates an AdminUserHandler.
func NewAdminUserHandler(adminSvc service.AdminUserService, errs Errors) *AdminUserHandler {
	return &AdminUserHandler{adminSvc: adminSvc, errs: errs}
}

// List handles GET /api/admin/users (Admin, development mode only).
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	users, err := h.adminSvc.ListUsers(r.Context(), callerFrom(r), limit, offset)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type roleChangeResponse struct {
	Changed bool `json:"changed"`
}

// GrantAdmin handles POST /api/admin/users/{id}/admin.
func (h *AdminUserHandler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	changed, err := h.adminSvc.GrantAdmin(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roleChangeResponse{Changed: changed})
}

// RevokeAdmin handles DELETE /api/admin/users/{id}/admin.
func (h *AdminUserHandler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	changed, err := h.adminSvc.RevokeAdmin(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roleChangeResponse{Changed: changed})
}
