package repository

import (
	"context"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/pkg/auth"
)

// DB reports database liveness.
type DB interface {
	Ping(ctx context.Context) error
}

// UserRepository persists users and their roles.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByGitHubID(ctx context.Context, githubID string) (*model.User, error)
	// Create inserts the user together with user.Roles.
	Create(ctx context.Context, user *model.User) error
	UpdateProviderID(ctx context.Context, userID, column, value string) error
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	// AddRole and RemoveRole are no-ops when the user is already in the
	// requested state. Both return ErrNotFound for an unknown user.
	AddRole(ctx context.Context, userID string, role auth.Role) error
	RemoveRole(ctx context.Context, userID string, role auth.Role) error
}

// ContactRepository persists contacts. It applies whatever OwnerID the
// query carries and never decides visibility itself.
type ContactRepository interface {
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	// Search returns one page of matching contacts and the total number of
	// matches across all pages.
	Search(ctx context.Context, q model.ContactQuery) ([]*model.Contact, int, error)
	Create(ctx context.Context, c *model.Contact) error
	// Update writes the editable fields. OwnerID is not part of the update.
	Update(ctx context.Context, c *model.Contact) error
	// Delete removes the contact and, by cascade, its email messages.
	Delete(ctx context.Context, id string) error
}

// EmailMessageRepository persists email messages attached to contacts.
type EmailMessageRepository interface {
	FindByID(ctx context.Context, id string) (*model.EmailMessage, error)
	ListByContact(ctx context.Context, contactID string) ([]*model.EmailMessage, error)
	Create(ctx context.Context, m *model.EmailMessage) error
	UpdateSent(ctx context.Context, id string, sent bool) error
	Delete(ctx context.Context, id string) error
}
