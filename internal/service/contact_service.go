package service

import (
	"context"
	"strings"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/pkg/auth"
)

// ContactInput is the editable part of a contact. It deliberately has no
// owner field: ownership always comes from the caller.
type ContactInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email,max=256"`
	Phone     string `json:"phone" validate:"omitempty,max=50"`
	Company   string `json:"company" validate:"omitempty,max=100"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (in ContactInput) Trimmed() ContactInput {
	return ContactInput{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Company:   strings.TrimSpace(in.Company),
	}
}

func (in ContactInput) applyTo(c *model.Contact) {
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Email = in.Email
	c.Phone = in.Phone
	c.Company = in.Company
}

// ContactService manages contacts on behalf of an authenticated caller.
// Every operation takes the caller explicitly and enforces ownership.
type ContactService interface {
	List(ctx context.Context, caller auth.Principal, q model.ContactQuery) (*model.PagedResult[*model.Contact], error)
	Get(ctx context.Context, caller auth.Principal, id string) (*model.Contact, error)
	Create(ctx context.Context, caller auth.Principal, in ContactInput) (*model.Contact, error)
	Update(ctx context.Context, caller auth.Principal, id string, in ContactInput) (*model.Contact, error)
	Delete(ctx context.Context, caller auth.Principal, id string) error
}
