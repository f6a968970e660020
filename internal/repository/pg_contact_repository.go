package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minicrm/backend/internal/model"
)

// PgContactRepository is the PostgreSQL implementation of ContactRepository.
type PgContactRepository struct {
	pool *pgxpool.Pool
}

// NewPgContactRepository creates a PgContactRepository backed by the given pool.
func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool}
}

// Ensure PgContactRepository implements ContactRepository at compile time.
var _ ContactRepository = (*PgContactRepository)(nil)

const contactSelectCols = `id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(company, ''), owner_id, created_at, updated_at`

func scanContact(scan func(...any) error) (*model.Contact, error) {
	var c model.Contact
	if err := scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Company, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+contactSelectCols+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row.Scan)
	if err != nil {
		return nil, pgErr(err)
	}
	return c, nil
}

// Search counts all matches first, then fetches the requested page.
func (r *PgContactRepository) Search(ctx context.Context, q model.ContactQuery) ([]*model.Contact, int, error) {
	q = q.Normalize()
	where, args := pgDialect.contactFilter(q)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, q.PageSize, q.Offset())
	query := `SELECT ` + contactSelectCols + ` FROM contacts ` + where + ` ` + contactOrderBy(q.Sort) +
		` LIMIT ` + pgDialect.placeholder(n+1) + ` OFFSET ` + pgDialect.placeholder(n+2)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := make([]*model.Contact, 0, q.PageSize)
	for rows.Next() {
		c, err := scanContact(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, c)
	}
	return contacts, total, rows.Err()
}

func (r *PgContactRepository) Create(ctx context.Context, c *model.Contact) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (first_name, last_name, email, phone, company, owner_id)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		 RETURNING id, created_at, updated_at`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Company, c.OwnerID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return pgErr(err)
}

func (r *PgContactRepository) Update(ctx context.Context, c *model.Contact) error {
	if !validID(c.ID) {
		return ErrNotFound
	}
	err := r.pool.QueryRow(ctx,
		`UPDATE contacts
		 SET first_name = $1, last_name = $2, email = NULLIF($3, ''), phone = NULLIF($4, ''),
		     company = NULLIF($5, ''), updated_at = NOW()
		 WHERE id = $6
		 RETURNING updated_at`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Company, c.ID,
	).Scan(&c.UpdatedAt)
	return pgErr(err)
}

func (r *PgContactRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
