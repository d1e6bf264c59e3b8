package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedmill/feedmill/internal/platform/db"
)

// Repository reads and replaces the business tables.
type Repository interface {
	Export(ctx context.Context) (Snapshot, error)
	Restore(ctx context.Context, snap Snapshot) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// restoreOrder lists tables parents first.
var restoreOrder = []string{
	"feeds", "feed_prices", "customers", "purchases", "invoices", "invoice_lines", "payments", "expenses",
}

func collect[T any](ctx context.Context, q db.DBTX, query string, scan func(pgx.Rows, *T) error) ([]T, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repository) Export(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Version: FormatVersion, CreatedAt: time.Now().UTC()}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if snap.Feeds, err = collect(ctx, tx, `SELECT id, name, quantity_kg, deleted_at, created_at, updated_at FROM feeds ORDER BY id`,
			func(rows pgx.Rows, f *FeedRow) error {
				return rows.Scan(&f.ID, &f.Name, &f.QuantityKg, &f.DeletedAt, &f.CreatedAt, &f.UpdatedAt)
			}); err != nil {
			return fmt.Errorf("export feeds: %w", err)
		}
		if snap.FeedPrices, err = collect(ctx, tx, `SELECT id, feed_id, price_type, currency, price_per_kg, updated_at FROM feed_prices ORDER BY id`,
			func(rows pgx.Rows, p *PriceRow) error {
				return rows.Scan(&p.ID, &p.FeedID, &p.PriceType, &p.Currency, &p.PricePerKg, &p.UpdatedAt)
			}); err != nil {
			return fmt.Errorf("export prices: %w", err)
		}
		if snap.Customers, err = collect(ctx, tx, `SELECT id, full_name, phone, address, created_at, updated_at FROM customers ORDER BY id`,
			func(rows pgx.Rows, c *CustomerRow) error {
				return rows.Scan(&c.ID, &c.FullName, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
			}); err != nil {
			return fmt.Errorf("export customers: %w", err)
		}
		if snap.Purchases, err = collect(ctx, tx, `SELECT id, feed_id, quantity_kg, price_per_kg, currency, supplier, notes, created_at FROM purchases ORDER BY id`,
			func(rows pgx.Rows, p *PurchaseRow) error {
				return rows.Scan(&p.ID, &p.FeedID, &p.QuantityKg, &p.PricePerKg, &p.Currency, &p.Supplier, &p.Notes, &p.CreatedAt)
			}); err != nil {
			return fmt.Errorf("export purchases: %w", err)
		}
		if snap.Invoices, err = collect(ctx, tx, `SELECT id, customer_id, is_walk_in, currency, created_at, updated_at FROM invoices ORDER BY id`,
			func(rows pgx.Rows, i *InvoiceRow) error {
				return rows.Scan(&i.ID, &i.CustomerID, &i.IsWalkIn, &i.Currency, &i.CreatedAt, &i.UpdatedAt)
			}); err != nil {
			return fmt.Errorf("export invoices: %w", err)
		}
		if snap.InvoiceLines, err = collect(ctx, tx, `SELECT id, invoice_id, position, feed_id, quantity_kg, price_type, unit_price FROM invoice_lines ORDER BY id`,
			func(rows pgx.Rows, l *LineRow) error {
				return rows.Scan(&l.ID, &l.InvoiceID, &l.Position, &l.FeedID, &l.QuantityKg, &l.PriceType, &l.UnitPrice)
			}); err != nil {
			return fmt.Errorf("export invoice lines: %w", err)
		}
		if snap.Payments, err = collect(ctx, tx, `SELECT id, invoice_id, amount, currency, payment_method, notes, created_at FROM payments ORDER BY id`,
			func(rows pgx.Rows, p *PaymentRow) error {
				return rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.Notes, &p.CreatedAt)
			}); err != nil {
			return fmt.Errorf("export payments: %w", err)
		}
		if snap.Expenses, err = collect(ctx, tx, `SELECT id, expense_type, expense_date, description, amount, currency, created_at, updated_at FROM expenses ORDER BY id`,
			func(rows pgx.Rows, e *ExpenseRow) error {
				return rows.Scan(&e.ID, &e.ExpenseType, &e.ExpenseDate, &e.Description, &e.Amount, &e.Currency, &e.CreatedAt, &e.UpdatedAt)
			}); err != nil {
			return fmt.Errorf("export expenses: %w", err)
		}
		return nil
	})
	return snap, err
}

func (r *repository) Restore(ctx context.Context, snap Snapshot) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE payments, invoice_lines, invoices, purchases, feed_prices, feeds, customers, expenses, idempotency_keys RESTART IDENTITY`); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}

		batch := &pgx.Batch{}
		for _, f := range snap.Feeds {
			batch.Queue(`INSERT INTO feeds (id, name, quantity_kg, deleted_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
				f.ID, f.Name, f.QuantityKg, f.DeletedAt, f.CreatedAt, f.UpdatedAt)
		}
		for _, p := range snap.FeedPrices {
			batch.Queue(`INSERT INTO feed_prices (id, feed_id, price_type, currency, price_per_kg, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
				p.ID, p.FeedID, p.PriceType, p.Currency, p.PricePerKg, p.UpdatedAt)
		}
		for _, c := range snap.Customers {
			batch.Queue(`INSERT INTO customers (id, full_name, phone, address, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
				c.ID, c.FullName, c.Phone, c.Address, c.CreatedAt, c.UpdatedAt)
		}
		for _, p := range snap.Purchases {
			batch.Queue(`INSERT INTO purchases (id, feed_id, quantity_kg, price_per_kg, currency, supplier, notes, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				p.ID, p.FeedID, p.QuantityKg, p.PricePerKg, p.Currency, p.Supplier, p.Notes, p.CreatedAt)
		}
		for _, i := range snap.Invoices {
			batch.Queue(`INSERT INTO invoices (id, customer_id, is_walk_in, currency, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
				i.ID, i.CustomerID, i.IsWalkIn, i.Currency, i.CreatedAt, i.UpdatedAt)
		}
		for _, l := range snap.InvoiceLines {
			batch.Queue(`INSERT INTO invoice_lines (id, invoice_id, position, feed_id, quantity_kg, price_type, unit_price) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				l.ID, l.InvoiceID, l.Position, l.FeedID, l.QuantityKg, l.PriceType, l.UnitPrice)
		}
		for _, p := range snap.Payments {
			batch.Queue(`INSERT INTO payments (id, invoice_id, amount, currency, payment_method, notes, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.ID, p.InvoiceID, p.Amount, p.Currency, p.PaymentMethod, p.Notes, p.CreatedAt)
		}
		for _, e := range snap.Expenses {
			batch.Queue(`INSERT INTO expenses (id, expense_type, expense_date, description, amount, currency, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				e.ID, e.ExpenseType, e.ExpenseDate, e.Description, e.Amount, e.Currency, e.CreatedAt, e.UpdatedAt)
		}
		for _, table := range restoreOrder {
			batch.Queue(fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`, table))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("restore rows: %w", err)
		}
		return nil
	})
}
