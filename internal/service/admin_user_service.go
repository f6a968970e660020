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

// AdminUserService provides admin-only user management operations.
type AdminUserService interface {
	ListUsers(ctx context.Context, caller auth.Principal, limit, offset int) ([]*model.User, error)
	// GrantAdmin and RevokeAdmin report whether the roles actually changed.
	// Asking for the current state succeeds with changed == false.
	GrantAdmin(ctx context.Context, caller auth.Principal, userID string) (changed bool, err error)
	RevokeAdmin(ctx context.Context, caller auth.Principal, userID string) (changed bool, err error)
	// ResolveUser finds a user by id or, failing that, by email.
	ResolveUser(ctx context.Context, ref string) (*model.User, error)
	// EnsureAdmin creates the bootstrap admin account if it does not exist
	// and makes sure it holds the Admin role.
	EnsureAdmin(ctx context.Context, email, password string) (*model.User, error)
}

type adminUserService struct {
	userRepo repository.UserRepository
	gate     policy.UserListingGate
}

// NewAdminUserService creates an AdminUserService.
func NewAdminUserService(userRepo repository.UserRepository, gate policy.UserListingGate) AdminUserService {
	return &adminUserService{userRepo: userRepo, gate: gate}
}

func (s *adminUserService) ListUsers(ctx context.Context, caller auth.Principal, limit, offset int) ([]*model.User, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !policy.HasAdmin(caller) {
		return nil, ErrAccessDenied
	}
	if !s.gate.ModeAllows() {
		return nil, ErrListingDisabled
	}
	if limit < 1 || limit > model.MaxPageSize {
		limit = model.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

func (s *adminUserService) GrantAdmin(ctx context.Context, caller auth.Principal, userID string) (bool, error) {
	return s.setAdmin(ctx, caller, userID, true)
}

func (s *adminUserService) RevokeAdmin(ctx context.Context, caller auth.Principal, userID string) (bool, error) {
	return s.setAdmin(ctx, caller, userID, false)
}

func (s *adminUserService) setAdmin(ctx context.Context, caller auth.Principal, userID string, grant bool) (bool, error) {
	if !caller.Authenticated() {
		return false, ErrUnauthenticated
	}
	if !policy.CanManageRoles(caller) {
		return false, ErrAccessDenied
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("find user: %w", err)
	}
	if u.IsAdmin() == grant {
		return false, nil
	}

	if grant {
		err = s.userRepo.AddRole(ctx, u.ID, auth.RoleAdmin)
	} else {
		err = s.userRepo.RemoveRole(ctx, u.ID, auth.RoleAdmin)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	slog.Info("admin role changed", "user_id", u.ID, "granted", grant, "by", caller.UserID)
	return true, nil
}

func (s *adminUserService) ResolveUser(ctx context.Context, ref string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, ref)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	u, err = s.userRepo.FindByEmail(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *adminUserService) EnsureAdmin(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !u.IsAdmin() {
			if err := s.userRepo.AddRole(ctx, u.ID, auth.RoleAdmin); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
			}
			u.Roles = append(u.Roles, auth.RoleAdmin)
			slog.Info("bootstrap admin promoted", "user_id", u.ID)
		}
		return u, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	if len(password) < auth.MinPasswordLength {
		return nil, &ValidationError{Fields: map[string]string{
			"password": fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength),
		}}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u = &model.User{
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Roles:        []auth.Role{auth.RoleAdmin, auth.RoleUser},
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	slog.Info("bootstrap admin created", "user_id", u.ID)
	return u, nil
}
