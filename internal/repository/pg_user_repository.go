package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minicrm/backend/internal/model"
	"github.com/minicrm/backend/pkg/auth"
)

// PgUserRepository is the PostgreSQL UserRepository.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserRepository creates a PgUserRepository.
func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

var _ UserRepository = (*PgUserRepository)(nil)

// Ping checks the connection (implements DB).
func (r *PgUserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(scan func(...any) error) (*model.User, error) {
	var u model.User
	var passwordHash, googleID, githubID *string
	if err := scan(&u.ID, &u.Email, &u.Name, &passwordHash, &googleID, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if googleID != nil {
		u.GoogleID = *googleID
	}
	if githubID != nil {
		u.GitHubID = *githubID
	}
	return &u, nil
}

const userSelectCols = `id, email, name, password_hash, google_id, github_id, created_at, updated_at`

func (r *PgUserRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userSelectCols+` FROM users WHERE `+where+` = $1`, arg)
	u, err := scanUser(row.Scan)
	if err != nil {
		return nil, pgErr(err)
	}
	if u.Roles, err = r.roles(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PgUserRepository) roles(ctx context.Context, userID string) ([]auth.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
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

// FindByID loads a user by id.
func (r *PgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, "id", id)
}

// FindByEmail loads a user by email address.
func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "lower(email)", normalizeEmail(email))
}

// FindByGoogleID loads a user by Google account id.
func (r *PgUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx, "google_id", googleID)
}

// FindByGitHubID loads a user by GitHub account id.
func (r *PgUserRepository) FindByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	return r.findOne(ctx, "github_id", githubID)
}

// Create inserts the user and its roles in one transaction.
func (r *PgUserRepository) Create(ctx context.Context, user *model.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, google_id, github_id)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		 RETURNING id, created_at, updated_at`,
		normalizeEmail(user.Email), user.Name, user.PasswordHash, user.GoogleID, user.GitHubID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return pgErr(err)
	}
	for _, role := range user.Roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			user.ID, string(role)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// UpdateProviderID sets the OAuth provider id for a user.
// column must be "google_id" or "github_id".
func (r *PgUserRepository) UpdateProviderID(ctx context.Context, userID, column, value string) error {
	if !allowedProviderColumns[column] {
		return fmt.Errorf("invalid provider column: %s", column)
	}
	if !validID(userID) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET `+column+` = $1, updated_at = NOW() WHERE id = $2`,
		value, userID)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns users ordered by email, each with its roles.
func (r *PgUserRepository) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userSelectCols+` FROM users ORDER BY email ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
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

// AddRole grants role to the user. Granting a held role changes nothing.
func (r *PgUserRepository) AddRole(ctx context.Context, userID string, role auth.Role) error {
	if err := r.ensureExists(ctx, userID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, string(role))
	return err
}

// RemoveRole revokes role from the user. Revoking a missing role changes nothing.
func (r *PgUserRepository) RemoveRole(ctx context.Context, userID string, role auth.Role) error {
	if err := r.ensureExists(ctx, userID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`,
		userID, string(role))
	return err
}

func (r *PgUserRepository) ensureExists(ctx context.Context, userID string) error {
	if !validID(userID) {
		return ErrNotFound
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
