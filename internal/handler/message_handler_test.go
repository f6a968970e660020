package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/service"
	"github.com/minicrm/backend/pkg/auth"
)

type mockMessageService struct {
	listFunc   func(ctx context.Context, caller auth.Principal, contactID string) (*service.ContactMessages, error)
	draftFunc  func(ctx context.Context, caller auth.Principal, contactID string) (*model.EmailMessage, error)
	createFunc func(ctx context.Context, caller auth.Principal, in service.MessageInput) (*model.EmailMessage, error)
	deleteFunc func(ctx context.Context, caller auth.Principal, id string) (string, error)
}

func (m *mockMessageService) ListForContact(ctx context.Context, caller auth.Principal, contactID string) (*service.ContactMessages, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, caller, contactID)
	}
	return &service.ContactMessages{Contact: &model.Contact{ID: contactID}}, nil
}

func (m *mockMessageService) Draft(ctx context.Context, caller auth.Principal, contactID string) (*model.EmailMessage, error) {
	if m.draftFunc != nil {
		return m.draftFunc(ctx, caller, contactID)
	}
	return &model.EmailMessage{ContactID: contactID}, nil
}

func (m *mockMessageService) Create(ctx context.Context, caller auth.Principal, in service.MessageInput) (*model.EmailMessage, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, caller, in)
	}
	return &model.EmailMessage{ID: "m1", ContactID: in.ContactID, Sent: true}, nil
}

func (m *mockMessageService) Delete(ctx context.Context, caller auth.Principal, id string) (string, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, caller, id)
	}
	return "", nil
}

func TestMessageHandler_ListForContact_EmptyListIsArray(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{}, Errors{})

	rec := serve("GET /api/contacts/{id}/messages", h.ListForContact, authedRequest(alice, "GET", "/api/contacts/c1/messages", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["messages"]) != "[]" {
		t.Errorf("expected empty array, got %s", body["messages"])
	}
}

func TestMessageHandler_Draft(t *testing.T) {
	svc := &mockMessageService{
		draftFunc: func(_ context.Context, _ auth.Principal, contactID string) (*model.EmailMessage, error) {
			return &model.EmailMessage{ContactID: contactID, To: "ada@example.com"}, nil
		},
	}
	h := NewMessageHandler(svc, Errors{})

	rec := serve("GET /api/contacts/{id}/messages/draft", h.Draft, authedRequest(alice, "GET", "/api/contacts/c1/messages/draft", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var m model.EmailMessage
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.To != "ada@example.com" || m.ContactID != "c1" {
		t.Errorf("unexpected draft: %+v", m)
	}
}

func TestMessageHandler_Create_ContactFromPath(t *testing.T) {
	var got service.MessageInput
	svc := &mockMessageService{
		createFunc: func(_ context.Context, _ auth.Principal, in service.MessageInput) (*model.EmailMessage, error) {
			got = in
			return &model.EmailMessage{ID: "m1", ContactID: in.ContactID, To: in.To, Sent: true}, nil
		},
	}
	h := NewMessageHandler(svc, Errors{})

	body := `{"contact_id":"someone-elses","to":"ada@example.com","subject":"Hi","body":"Hello"}`
	rec := serve("POST /api/contacts/{id}/messages", h.Create, authedRequest(alice, "POST", "/api/contacts/c1/messages", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got.ContactID != "c1" {
		t.Errorf("contact must come from the path, got %q", got.ContactID)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["sent"] != true {
		t.Errorf("expected sent=true, got %v", resp["sent"])
	}
	if _, ok := resp["warning"]; ok {
		t.Errorf("unexpected warning on success: %v", resp)
	}
}

func TestMessageHandler_Create_DeliveryFailureStill201(t *testing.T) {
	svc := &mockMessageService{
		createFunc: func(_ context.Context, _ auth.Principal, in service.MessageInput) (*model.EmailMessage, error) {
			m := &model.EmailMessage{ID: "m1", ContactID: in.ContactID, Sent: false}
			return m, fmt.Errorf("%w: %w", service.ErrDeliveryFailed, errors.New("smtp 554"))
		},
	}
	h := NewMessageHandler(svc, Errors{})

	body := `{"to":"ada@example.com","subject":"Hi","body":"Hello"}`
	rec := serve("POST /api/contacts/{id}/messages", h.Create, authedRequest(alice, "POST", "/api/contacts/c1/messages", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["sent"] != false || resp["warning"] != "delivery_failed" || resp["id"] != "m1" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestMessageHandler_Create_StoreWriteFailed(t *testing.T) {
	svc := &mockMessageService{
		createFunc: func(context.Context, auth.Principal, service.MessageInput) (*model.EmailMessage, error) {
			return nil, fmt.Errorf("%w: %w", service.ErrStoreWriteFailed, errors.New("db down"))
		},
	}
	h := NewMessageHandler(svc, Errors{})

	body := `{"to":"ada@example.com","subject":"Hi","body":"Hello"}`
	rec := serve("POST /api/contacts/{id}/messages", h.Create, authedRequest(alice, "POST", "/api/contacts/c1/messages", body))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "store_write_failed" {
		t.Errorf("expected store_write_failed, got %q", code)
	}
}

func TestMessageHandler_Delete_ReturnsContactID(t *testing.T) {
	svc := &mockMessageService{
		deleteFunc: func(_ context.Context, _ auth.Principal, id string) (string, error) {
			if id != "m1" {
				return "", service.ErrNotFound
			}
			return "c1", nil
		},
	}
	h := NewMessageHandler(svc, Errors{})

	rec := serve("DELETE /api/messages/{id}", h.Delete, authedRequest(alice, "DELETE", "/api/messages/m1", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp deleteMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ContactID != "c1" {
		t.Errorf("expected contact_id c1, got %q", resp.ContactID)
	}

	rec = serve("DELETE /api/messages/{id}", h.Delete, authedRequest(alice, "DELETE", "/api/messages/nope", ""))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
