package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/minicrm/backend/internal/repository"
)

var (
	// ErrNotFound means the addressed record does not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrAccessDenied means the record exists but the caller may not act on it.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnauthenticated means the operation needs a signed-in caller.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStoreWriteFailed wraps a persistence failure during a write. Retryable.
	ErrStoreWriteFailed = errors.New("store write failed")
	// ErrDeliveryFailed wraps a notification failure. The message is still stored.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrInvalidCredentials is returned for any failed password login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrListingDisabled means user listing is turned off for this deployment mode.
	ErrListingDisabled = errors.New("user listing disabled")
)

// ValidationError carries one message per invalid input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
