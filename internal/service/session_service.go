package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/pkg/auth"
)

var (
	ErrInvalidSession = errors.New("invalid_session")
	ErrSessionExpired = errors.New("session_expired")
)

// SessionService manages DB-backed user sessions.
// Implements auth.SessionValidator.
type SessionService struct {
	repo repository.SessionRepository
	ttl  time.Duration
	now  func() time.Time
}

// NewSessionService creates a SessionService. A non-positive ttl uses
// auth.SessionDuration.
func NewSessionService(repo repository.SessionRepository, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = auth.SessionDuration
	}
	return &SessionService{repo: repo, ttl: ttl, now: time.Now}
}

var _ auth.SessionValidator = (*SessionService)(nil)

// CreateSession generates a new opaque token, stores it in DB, and returns the session.
func (s *SessionService) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.Error("session token generation failed", "error", err)
		return nil, err
	}
	now := s.now()
	session := &model.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		slog.Error("session insert failed", "user_id", userID, "error", err)
		return nil, err
	}
	slog.Debug("session created", "user_id", userID, "expires_at", session.ExpiresAt)
	return session, nil
}

// ValidateSession validates a session token and returns the user ID.
// Expired sessions are deleted on sight.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (string, error) {
	session, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		slog.Debug("session lookup failed", "error", err)
		return "", ErrInvalidSession
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.repo.DeleteByToken(ctx, token)
		return "", ErrSessionExpired
	}
	return session.UserID, nil
}

// DeleteSession removes a session (logout).
func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	return s.repo.DeleteByToken(ctx, token)
}

// DeleteAllSessions removes all sessions for a user (forced logout).
func (s *SessionService) DeleteAllSessions(ctx context.Context, userID string) error {
	return s.repo.DeleteByUserID(ctx, userID)
}
