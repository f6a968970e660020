package repository

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate")

// validID reports whether id is a well-formed record identifier. Malformed
// ids can never match a row, so callers translate them to ErrNotFound
// instead of sending them to the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
