package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/pkg/auth"
)

// SQLiteUserRepository is the SQLite implementation of UserRepository.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

var _ UserRepository = (*SQLiteUserRepository)(nil)

func scanSQLiteUser(scan func(...any) error) (*model.User, error) {
	var u model.User
	var passwordHash, googleID, githubID sql.NullString
	var createdAt, updatedAt int64
	if err := scan(&u.ID, &u.Email, &u.Name, &passwordHash, &googleID, &githubID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = passwordHash.String
	u.GoogleID = googleID.String
	u.GitHubID = githubID.String
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return &u, nil
}

func (r *SQLiteUserRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE `+where+` = ?`, arg).Scan)
	if err != nil {
		return nil, sqliteErr(err)
	}
	if u.Roles, err = r.roles(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *SQLiteUserRepository) roles(ctx context.Context, userID string) ([]auth.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, auth.Role(role))
	}
	return roles, rows.Err()
}

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email", normalizeEmail(email))
}

func (r *SQLiteUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx, "google_id", googleID)
}

func (r *SQLiteUserRepository) FindByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	return r.findOne(ctx, "github_id", githubID)
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	id := uuid.NewString()
	email := normalizeEmail(user.Email)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, google_id, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, email, user.Name, nullIfEmpty(user.PasswordHash), nullIfEmpty(user.GoogleID), nullIfEmpty(user.GitHubID),
		toUnix(now), toUnix(now))
	if err != nil {
		return sqliteErr(err)
	}
	for _, role := range user.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`, id, string(role)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	user.ID = id
	user.Email = email
	user.CreatedAt = fromUnix(toUnix(now))
	user.UpdatedAt = user.CreatedAt
	return nil
}

func (r *SQLiteUserRepository) UpdateProviderID(ctx context.Context, userID, column, value string) error {
	if !allowedProviderColumns[column] {
		return fmt.Errorf("invalid provider column: %s", column)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		value, toUnix(time.Now()), userID)
	if err != nil {
		return sqliteErr(err)
	}
	return rowsAffected(res)
}

func (r *SQLiteUserRepository) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userSelectCols+` FROM users ORDER BY email ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}

	var users []*model.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Roles, err = r.roles(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *SQLiteUserRepository) AddRole(ctx context.Context, userID string, role auth.Role) error {
	if err := r.ensureExists(ctx, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`, userID, string(role))
	return err
}

func (r *SQLiteUserRepository) RemoveRole(ctx context.Context, userID string, role auth.Role) error {
	if err := r.ensureExists(ctx, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, string(role))
	return err
}

func (r *SQLiteUserRepository) ensureExists(ctx context.Context, userID string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
