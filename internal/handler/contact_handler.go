package handler

import (
	"net/http"
	"strconv"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/service"
)

// ContactHandler handles the /api/contacts endpoints.
type ContactHandler struct {
	contactService service.ContactService
	errs           Errors
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(contactService service.ContactService, errs Errors) *ContactHandler {
	return &ContactHandler{contactService: contactService, errs: errs}
}

// List handles GET /api/contacts?search=&company=&sort=&page=&pageSize=
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := model.ContactQuery{
		Search:   q.Get("search"),
		Company:  q.Get("company"),
		Sort:     q.Get("sort"),
		Page:     atoiOr(q.Get("page"), 1),
		PageSize: atoiOr(firstNonEmpty(q.Get("pageSize"), q.Get("page_size")), model.DefaultPageSize),
	}

	result, err := h.contactService.List(r.Context(), callerFrom(r), query)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /api/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.contactService.Get(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create handles POST /api/contacts. The owner is always the caller; an
// owner_id in the body is not part of ContactInput and is dropped on decode.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.contactService.Create(r.Context(), callerFrom(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/contacts/"+c.ID)
	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.contactService.Update(r.Context(), callerFrom(r), r.PathValue("id"), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contactService.Delete(r.Context(), callerFrom(r), r.PathValue("id")); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
