package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/minicrm/backend/internal/model"
)

// SQLiteContactRepository is the SQLite implementation of ContactRepository.
type SQLiteContactRepository struct {
	db *sql.DB
}

func NewSQLiteContactRepository(db *sql.DB) *SQLiteContactRepository {
	return &SQLiteContactRepository{db: db}
}

var _ ContactRepository = (*SQLiteContactRepository)(nil)

func scanSQLiteContact(scan func(...any) error) (*model.Contact, error) {
	var c model.Contact
	var createdAt, updatedAt int64
	if err := scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Company, &c.OwnerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return &c, nil
}

func (r *SQLiteContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	c, err := scanSQLiteContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactSelectCols+` FROM contacts WHERE id = ?`, id).Scan)
	if err != nil {
		return nil, sqliteErr(err)
	}
	return c, nil
}

func (r *SQLiteContactRepository) Search(ctx context.Context, q model.ContactQuery) ([]*model.Contact, int, error) {
	q = q.Normalize()
	where, args := sqliteDialect.contactFilter(q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PageSize, q.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactSelectCols+` FROM contacts `+where+` `+contactOrderBy(q.Sort)+` LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := make([]*model.Contact, 0, q.PageSize)
	for rows.Next() {
		c, err := scanSQLiteContact(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, c)
	}
	return contacts, total, rows.Err()
}

func (r *SQLiteContactRepository) Create(ctx context.Context, c *model.Contact) error {
	now := toUnix(time.Now())
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, first_name, last_name, email, phone, company, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.FirstName, c.LastName, nullIfEmpty(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.Company), c.OwnerID, now, now)
	if err != nil {
		return sqliteErr(err)
	}
	c.ID = id
	c.CreatedAt = fromUnix(now)
	c.UpdatedAt = c.CreatedAt
	return nil
}

func (r *SQLiteContactRepository) Update(ctx context.Context, c *model.Contact) error {
	now := toUnix(time.Now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET first_name = ?, last_name = ?, email = ?, phone = ?, company = ?, updated_at = ?
		 WHERE id = ?`,
		c.FirstName, c.LastName, nullIfEmpty(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.Company), now, c.ID)
	if err != nil {
		return sqliteErr(err)
	}
	if err := rowsAffected(res); err != nil {
		return err
	}
	c.UpdatedAt = fromUnix(now)
	return nil
}

func (r *SQLiteContactRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}
