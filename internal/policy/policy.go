// Package policy holds the ownership and role rules applied to every contact
// and email-message operation, and the gates for role administration.
package policy

import (
	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/pkg/auth"
)

// HasAdmin reports whether the caller holds the Admin role.
func HasAdmin(caller auth.Principal) bool {
	return caller.Authenticated() && caller.IsAdmin()
}

// CanEdit reports whether caller may view or mutate c, including the email
// messages attached to it. Admins may act on every contact; everyone else
// only on contacts they own.
func CanEdit(caller auth.Principal, c *model.Contact) bool {
	if c == nil || !caller.Authenticated() {
		return false
	}
	if caller.IsAdmin() {
		return true
	}
	return c.OwnerID == caller.UserID
}

// ScopeList narrows a contact list query to the caller's own records unless
// the caller is an Admin. Any OwnerID already present on q is discarded.
func ScopeList(caller auth.Principal, q model.ContactQuery) model.ContactQuery {
	if HasAdmin(caller) {
		q.OwnerID = ""
		return q
	}
	q.OwnerID = caller.UserID
	return q
}

// CanManageRoles reports whether caller may grant or revoke roles.
func CanManageRoles(caller auth.Principal) bool {
	return HasAdmin(caller)
}

// UserListingGate is the deployment-mode half of the user-listing check.
type UserListingGate struct {
	// Development is true when the deployment runs in development mode.
	Development bool
	// AllowAnyEnv lifts the development-only restriction.
	AllowAnyEnv bool
}

// ModeAllows reports whether the deployment mode permits listing users.
func (g UserListingGate) ModeAllows() bool {
	return g.Development || g.AllowAnyEnv
}

// CanListUsers combines the role check with the deployment-mode gate.
func CanListUsers(caller auth.Principal, gate UserListingGate) bool {
	return HasAdmin(caller) && gate.ModeAllows()
}
