package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/policy"
	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/pkg/auth"
)

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo repository.ContactRepository
}

// NewContactService creates a ContactService backed by the given repository.
func NewContactService(repo repository.ContactRepository) ContactService {
	return &contactServiceImpl{repo: repo}
}

// List returns one page of the contacts visible to caller.
func (s *contactServiceImpl) List(ctx context.Context, caller auth.Principal, q model.ContactQuery) (*model.PagedResult[*model.Contact], error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	q = policy.ScopeList(caller, q.Normalize())

	items, total, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	if items == nil {
		items = []*model.Contact{}
	}
	return &model.PagedResult[*model.Contact]{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalItems: total,
	}, nil
}

// Get returns the contact if caller may see it.
func (s *contactServiceImpl) Get(ctx context.Context, caller auth.Principal, id string) (*model.Contact, error) {
	return loadEditableContact(ctx, s.repo, caller, id)
}

// Create stores a new contact owned by caller. Any owner the client may
// have tried to supply never reaches this point.
func (s *contactServiceImpl) Create(ctx context.Context, caller auth.Principal, in ContactInput) (*model.Contact, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	in = in.Trimmed()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	c := &model.Contact{OwnerID: caller.UserID}
	in.applyTo(c)
	if err := s.repo.Create(ctx, c); err != nil {
		slog.Error("create contact failed", "owner_id", caller.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	slog.Info("contact created", "contact_id", c.ID, "owner_id", c.OwnerID)
	return c, nil
}

// Update copies the editable fields of in onto the stored contact.
func (s *contactServiceImpl) Update(ctx context.Context, caller auth.Principal, id string, in ContactInput) (*model.Contact, error) {
	c, err := loadEditableContact(ctx, s.repo, caller, id)
	if err != nil {
		return nil, err
	}
	in = in.Trimmed()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	in.applyTo(c)
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// deleted concurrently
			return nil, ErrNotFound
		}
		slog.Error("update contact failed", "contact_id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	return c, nil
}

// Delete removes the contact and its messages.
func (s *contactServiceImpl) Delete(ctx context.Context, caller auth.Principal, id string) error {
	if _, err := loadEditableContact(ctx, s.repo, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		slog.Error("delete contact failed", "contact_id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	slog.Info("contact deleted", "contact_id", id, "by", caller.UserID)
	return nil
}

// loadEditableContact fetches a contact and applies the ownership gate.
// Missing contacts are reported before access checks.
func loadEditableContact(ctx context.Context, repo repository.ContactRepository, caller auth.Principal, id string) (*model.Contact, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	c, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find contact: %w", err)
	}
	if !policy.CanEdit(caller, c) {
		return nil, ErrAccessDenied
	}
	return c, nil
}
