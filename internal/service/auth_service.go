package service

import (
	"context"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/pkg/auth"
)

// GoogleUserInfo is the profile returned by Google OAuth.
type GoogleUserInfo struct {
	Sub   string
	Email string
	Name  string
}

// GitHubUserInfo is the profile returned by GitHub OAuth.
type GitHubUserInfo struct {
	ID    int64
	Login string
	Email string
	Name  string
}

// RegisterInput is a password registration request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=256"`
	Name     string `json:"name" validate:"max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthService registers and authenticates users.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	// Authenticate checks an email/password pair. Every failure is
	// reported as ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetOrCreateUserFromGoogle(ctx context.Context, info *GoogleUserInfo) (*model.User, error)
	GetOrCreateUserFromGitHub(ctx context.Context, info *GitHubUserInfo) (*model.User, error)
	// Principal loads the current roles for userID. Implements auth.PrincipalLoader.
	Principal(ctx context.Context, userID string) (auth.Principal, error)
}
