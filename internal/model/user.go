package model

import (
	"time"

	"github.com/minicrm/backend/pkg/auth"
)

type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	PasswordHash string      `json:"-"`
	GoogleID     string      `json:"-"`
	GitHubID     string      `json:"-"`
	Roles        []auth.Role `json:"roles"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u.Principal().IsAdmin()
}

// Principal returns the authentication result for this user.
func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Roles: u.Roles}
}
