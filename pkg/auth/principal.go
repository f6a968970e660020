package auth

import (
	"context"
	"slices"
	"strings"
)

// Role is a named permission set granted to a user.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ParseRole maps a case-insensitive role name to a known Role.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "user":
		return RoleUser, true
	}
	return "", false
}

// Principal is the authentication result handed to every service call:
// who the caller is and which roles they hold. It is never built from
// request payloads.
type Principal struct {
	UserID string
	Email  string
	Roles  []Role
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role Role) bool {
	return slices.Contains(p.Roles, role)
}

// IsAdmin reports whether the principal holds the Admin role.
func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// Authenticated reports whether the principal carries a user id.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

const principalKey contextKey = "principal"

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.Authenticated()
}
