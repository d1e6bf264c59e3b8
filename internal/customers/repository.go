package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedmill/feedmill/internal/platform/db"
	"github.com/feedmill/feedmill/internal/shared"
)

var (
	ErrNotFound    = shared.NotFound("customer not found")
	ErrHasInvoices = shared.Conflict("customer has invoices and cannot be deleted")
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (Customer, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id int64) error
	InvoiceCount(ctx context.Context, id int64) (int, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const customerColumns = `id, full_name, phone, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *repository) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	where := ""
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = " WHERE full_name ILIKE $1 OR phone ILIKE $1"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY full_name, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	created, err := scanCustomer(r.db.QueryRow(ctx,
		`INSERT INTO customers (full_name, phone, address, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW()) RETURNING `+customerColumns,
		c.FullName, c.Phone, c.Address))
	if err != nil {
		return Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, c Customer) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET full_name = $2, phone = $3, address = $4, updated_at = NOW() WHERE id = $1`,
		c.ID, c.FullName, c.Phone, c.Address)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InvoiceCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE customer_id = $1`, id).Scan(&n)
	return n, err
}
