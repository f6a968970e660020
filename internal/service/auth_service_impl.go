package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/pkg/auth"
)

// AuthServiceImpl implements AuthService.
type AuthServiceImpl struct {
	userRepo repository.UserRepository
}

// NewAuthService creates an AuthServiceImpl.
func NewAuthService(userRepo repository.UserRepository) AuthService {
	return &AuthServiceImpl{userRepo: userRepo}
}

var _ auth.PrincipalLoader = (*AuthServiceImpl)(nil)

// Register creates a password user with the User role.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	name := in.Name
	if name == "" {
		name = in.Email
	}
	u := &model.User{
		Email:        in.Email,
		Name:         name,
		PasswordHash: hash,
		Roles:        []auth.Role{auth.RoleUser},
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		slog.Error("register user failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	slog.Info("new user created", "user_id", u.ID, "provider", "password")
	return u, nil
}

// Authenticate checks an email and password.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// burn the same time as a real comparison
			_ = auth.CheckPassword(dummyHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return u, nil
}

// dummyHash is compared against on unknown emails.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("unknown-user-placeholder")
	return h
})

// GetOrCreateUserFromGoogle finds or creates the user for a Google profile.
func (s *AuthServiceImpl) GetOrCreateUserFromGoogle(ctx context.Context, info *GoogleUserInfo) (*model.User, error) {
	slog.Debug("get or create google user", "sub", info.Sub, "email", info.Email)

	u, err := s.userRepo.FindByGoogleID(ctx, info.Sub)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find google user: %w", err)
	}

	// link the provider id to an existing account with the same email
	if existing, err := s.userRepo.FindByEmail(ctx, info.Email); err == nil {
		if err := s.userRepo.UpdateProviderID(ctx, existing.ID, "google_id", info.Sub); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
		}
		existing.GoogleID = info.Sub
		return existing, nil
	}

	newUser := &model.User{
		Email:    info.Email,
		GoogleID: info.Sub,
		Name:     info.Name,
		Roles:    []auth.Role{auth.RoleUser},
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		slog.Error("create google user failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	slog.Info("new user created", "user_id", newUser.ID, "provider", "google")
	return newUser, nil
}

// GetOrCreateUserFromGitHub finds or creates the user for a GitHub profile.
func (s *AuthServiceImpl) GetOrCreateUserFromGitHub(ctx context.Context, info *GitHubUserInfo) (*model.User, error) {
	githubID := fmt.Sprintf("%d", info.ID)
	u, err := s.userRepo.FindByGitHubID(ctx, githubID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find github user: %w", err)
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	email := info.Email
	if email == "" {
		email = info.Login + "@users.noreply.github.com"
	}

	if existing, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		if err := s.userRepo.UpdateProviderID(ctx, existing.ID, "github_id", githubID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
		}
		existing.GitHubID = githubID
		return existing, nil
	}

	newUser := &model.User{
		Email:    email,
		GitHubID: githubID,
		Name:     name,
		Roles:    []auth.Role{auth.RoleUser},
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	slog.Info("new user created", "user_id", newUser.ID, "provider", "github")
	return newUser, nil
}

// Principal loads the user's current roles.
func (s *AuthServiceImpl) Principal(ctx context.Context, userID string) (auth.Principal, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return auth.Principal{}, err
	}
	return u.Principal(), nil
}
