package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minicrm/backend/internal/model"
)

// PgEmailMessageRepository is the PostgreSQL implementation of EmailMessageRepository.
type PgEmailMessageRepository struct {
	pool *pgxpool.Pool
}

// NewPgEmailMessageRepository creates a PgEmailMessageRepository backed by the given pool.
func NewPgEmailMessageRepository(pool *pgxpool.Pool) *PgEmailMessageRepository {
	return &PgEmailMessageRepository{pool: pool}
}

var _ EmailMessageRepository = (*PgEmailMessageRepository)(nil)

const messageSelectCols = `id, contact_id, recipient, subject, body, sent, created_at`

func scanMessage(scan func(...any) error) (*model.EmailMessage, error) {
	var m model.EmailMessage
	if err := scan(&m.ID, &m.ContactID, &m.To, &m.Subject, &m.Body, &m.Sent, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgEmailMessageRepository) FindByID(ctx context.Context, id string) (*model.EmailMessage, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`SELECT `+messageSelectCols+` FROM email_messages WHERE id = $1`, id).Scan)
	if err != nil {
		return nil, pgErr(err)
	}
	return m, nil
}

// ListByContact returns the contact's messages, newest first.
func (r *PgEmailMessageRepository) ListByContact(ctx context.Context, contactID string) ([]*model.EmailMessage, error) {
	if !validID(contactID) {
		return []*model.EmailMessage{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageSelectCols+` FROM email_messages WHERE contact_id = $1 ORDER BY created_at DESC, id ASC`,
		contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.EmailMessage{}
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Create inserts m. A zero CreatedAt is filled in by the database.
func (r *PgEmailMessageRepository) Create(ctx context.Context, m *model.EmailMessage) error {
	if !validID(m.ContactID) {
		return ErrNotFound
	}
	var createdAt any
	if !m.CreatedAt.IsZero() {
		createdAt = m.CreatedAt
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO email_messages (contact_id, recipient, subject, body, sent, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()))
		 RETURNING id, created_at`,
		m.ContactID, m.To, m.Subject, m.Body, m.Sent, createdAt,
	).Scan(&m.ID, &m.CreatedAt)
	return pgErr(err)
}

func (r *PgEmailMessageRepository) UpdateSent(ctx context.Context, id string, sent bool) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE email_messages SET sent = $1 WHERE id = $2`, sent, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgEmailMessageRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM email_messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
