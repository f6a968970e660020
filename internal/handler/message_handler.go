package handler

import (
	"errors"
	"net/http"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/service"
)

// MessageHandler handles email messages attached to contacts.
type MessageHandler struct {
	messageService service.EmailMessageService
	errs           Errors
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(messageService service.EmailMessageService, errs Errors) *MessageHandler {
	return &MessageHandler{messageService: messageService, errs: errs}
}

// createMessageResponse is the message plus a warning when delivery failed.
type createMessageResponse struct {
	*model.EmailMessage
	Warning string `json:"warning,omitempty"`
}

// ListForContact handles GET /api/contacts/{id}/messages
func (h *MessageHandler) ListForContact(w http.ResponseWriter, r *http.Request) {
	res, err := h.messageService.ListForContact(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	if res.Messages == nil {
		res.Messages = []*model.EmailMessage{}
	}
	writeJSON(w, http.StatusOK, res)
}

// Draft handles GET /api/contacts/{id}/messages/draft
func (h *MessageHandler) Draft(w http.ResponseWriter, r *http.Request) {
	m, err := h.messageService.Draft(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Create handles POST /api/contacts/{id}/messages. The contact comes from
// the path, never from the body. A stored message whose delivery failed is
// still reported as created.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.MessageInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ContactID = r.PathValue("id")

	m, err := h.messageService.Create(r.Context(), callerFrom(r), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, createMessageResponse{EmailMessage: m})
	case m != nil && errors.Is(err, service.ErrDeliveryFailed):
		writeJSON(w, http.StatusCreated, createMessageResponse{EmailMessage: m, Warning: "delivery_failed"})
	default:
		h.errs.Write(w, r, err)
	}
}

type deleteMessageResponse struct {
	ContactID string `json:"contact_id"`
}

// Delete handles DELETE /api/messages/{id}. The response names the parent
// contact so clients can navigate back to it.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contactID, err := h.messageService.Delete(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteMessageResponse{ContactID: contactID})
}
