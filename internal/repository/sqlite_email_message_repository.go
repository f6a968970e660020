package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/minicrm/backend/internal/model"
)

// SQLiteEmailMessageRepository is the SQLite implementation of EmailMessageRepository.
type SQLiteEmailMessageRepository struct {
	db *sql.DB
}

func NewSQLiteEmailMessageRepository(db *sql.DB) *SQLiteEmailMessageRepository {
	return &SQLiteEmailMessageRepository{db: db}
}

var _ EmailMessageRepository = (*SQLiteEmailMessageRepository)(nil)

func scanSQLiteMessage(scan func(...any) error) (*model.EmailMessage, error) {
	var m model.EmailMessage
	var createdAt int64
	if err := scan(&m.ID, &m.ContactID, &m.To, &m.Subject, &m.Body, &m.Sent, &createdAt); err != nil {
		return nil, err
	}
	m.CreatedAt = fromUnix(createdAt)
	return &m, nil
}

func (r *SQLiteEmailMessageRepository) FindByID(ctx context.Context, id string) (*model.EmailMessage, error) {
	m, err := scanSQLiteMessage(r.db.QueryRowContext(ctx,
		`SELECT `+messageSelectCols+` FROM email_messages WHERE id = ?`, id).Scan)
	if err != nil {
		return nil, sqliteErr(err)
	}
	return m, nil
}

func (r *SQLiteEmailMessageRepository) ListByContact(ctx context.Context, contactID string) ([]*model.EmailMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageSelectCols+` FROM email_messages WHERE contact_id = ? ORDER BY created_at DESC, id ASC`,
		contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.EmailMessage{}
	for rows.Next() {
		m, err := scanSQLiteMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *SQLiteEmailMessageRepository) Create(ctx context.Context, m *model.EmailMessage) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_messages (id, contact_id, recipient, subject, body, sent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, m.ContactID, m.To, m.Subject, m.Body, m.Sent, toUnix(createdAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return sqliteErr(err)
	}
	m.ID = id
	m.CreatedAt = fromUnix(toUnix(createdAt))
	return nil
}

func (r *SQLiteEmailMessageRepository) UpdateSent(ctx context.Context, id string, sent bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE email_messages SET sent = ? WHERE id = ?`, sent, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func (r *SQLiteEmailMessageRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}
