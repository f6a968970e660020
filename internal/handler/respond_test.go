package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minicrm/backend/internal/service"
)

func TestErrors_Write_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		mask       bool
		wantStatus int
		wantCode   string
	}{
		{"not found", service.ErrNotFound, false, http.StatusNotFound, "not_found"},
		{"access denied", service.ErrAccessDenied, false, http.StatusForbidden, "forbidden"},
		{"access denied masked", service.ErrAccessDenied, true, http.StatusNotFound, "not_found"},
		{"unauthenticated", service.ErrUnauthenticated, false, http.StatusUnauthorized, "unauthorized"},
		{"invalid credentials", service.ErrInvalidCredentials, false, http.StatusUnauthorized, "invalid_credentials"},
		{"listing disabled", service.ErrListingDisabled, false, http.StatusForbidden, "listing_disabled"},
		{"email taken", service.ErrEmailTaken, false, http.StatusConflict, "email_taken"},
		{"store write", fmt.Errorf("%w: %w", service.ErrStoreWriteFailed, errors.New("disk full")), false, http.StatusServiceUnavailable, "store_write_failed"},
		{"unknown", errors.New("boom"), false, http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			Errors{MaskForbidden: tt.mask}.Write(rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: want %d, got %d", tt.wantStatus, rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != tt.wantCode {
				t.Errorf("code: want %q, got %q", tt.wantCode, code)
			}
		})
	}
}

func TestErrors_Write_StoreWriteFailedIsRetryable(t *testing.T) {
	rec := httptest.NewRecorder()
	Errors{}.Write(rec, httptest.NewRequest("POST", "/x", nil), fmt.Errorf("%w: %w", service.ErrStoreWriteFailed, errors.New("locked")))
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After on 503")
	}
	if strings.Contains(rec.Body.String(), "locked") {
		t.Errorf("cause leaked to client: %s", rec.Body.String())
	}
}

func TestErrors_Write_ValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &service.ValidationError{Fields: map[string]string{"first_name": "is required"}}
	Errors{}.Write(rec, httptest.NewRequest("POST", "/x", nil), err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "validation_failed" || body.Fields["first_name"] != "is required" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"", "empty_body"},
		{"{not json", "invalid_json"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/x", strings.NewReader(tt.body))
		var dst map[string]any
		if decodeJSON(rec, req, &dst) {
			t.Fatalf("decodeJSON(%q) should fail", tt.body)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", tt.body, rec.Code)
		}
		if code := decodeErrorCode(t, rec); code != tt.want {
			t.Errorf("%q: want %q, got %q", tt.body, tt.want, code)
		}
	}
}
