package repository

import (
	"context"
	"database/sql"

	"github.com/minicrm/backend/internal/model"
)

type sqliteSessionRepository struct {
	db *sql.DB
}

// NewSQLiteSessionRepository returns a SQLite-backed SessionRepository.
func NewSQLiteSessionRepository(db *sql.DB) SessionRepository {
	return &sqliteSessionRepository{db: db}
}

func (r *sqliteSessionRepository) Create(ctx context.Context, s *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, toUnix(s.CreatedAt), toUnix(s.ExpiresAt))
	return sqliteErr(err)
}

func (r *sqliteSessionRepository) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	s := &model.Session{}
	var createdAt, expiresAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`,
		token).Scan(&s.Token, &s.UserID, &createdAt, &expiresAt)
	if err != nil {
		return nil, sqliteErr(err)
	}
	s.CreatedAt = fromUnix(createdAt)
	s.ExpiresAt = fromUnix(expiresAt)
	return s, nil
}

func (r *sqliteSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (r *sqliteSessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}
