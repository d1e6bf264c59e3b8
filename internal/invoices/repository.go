package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/platform/db"
	"github.com/feedmill/feedmill/internal/shared"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = shared.NotFound("invoice not found")
	// ErrCustomerNotFound indicates the customer does not exist.
	ErrCustomerNotFound = shared.NotFound("customer not found")
)

// Repository reads invoices and their projections and opens write transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Summary, int, error)
	Debts(ctx context.Context) ([]CustomerDebt, error)
	CustomerDebt(ctx context.Context, customerID int64) (CustomerDebtDetail, error)
}

// TxRepository is the write side bound to one transaction.
type TxRepository interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
	LockFeeds(ctx context.Context, ids []int64) (map[int64]FeedStock, error)
	AdjustStock(ctx context.Context, feedID int64, delta decimal.Decimal) error
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	ReplaceLines(ctx context.Context, invoiceID int64, lines []Line) error
	LockInvoice(ctx context.Context, id int64) (Invoice, error)
	OpenInvoices(ctx context.Context, customerID int64, currency money.Currency) ([]Summary, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	TouchInvoice(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

type txRepository struct {
	repository
	feeds feeds.Repository
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			repository: repository{db: tx, pool: r.pool},
			feeds:      feeds.NewTxRepository(tx),
		})
	})
}

// summaryFrom joins each invoice with its derived total and paid amounts.
const summaryFrom = `
FROM invoices i
LEFT JOIN customers c ON c.id = i.customer_id
LEFT JOIN (SELECT invoice_id, SUM(quantity_kg * unit_price) AS total FROM invoice_lines GROUP BY invoice_id) t ON t.invoice_id = i.id
LEFT JOIN (SELECT invoice_id, SUM(amount) AS paid FROM payments GROUP BY invoice_id) p ON p.invoice_id = i.id`

const summaryColumns = `i.id, i.customer_id, COALESCE(c.full_name, ''), i.is_walk_in, i.currency, i.created_at,
	COALESCE(t.total, 0), COALESCE(p.paid, 0)`

func scanSummary(row pgx.Row) (Summary, error) {
	var s Summary
	var currency string
	if err := row.Scan(&s.ID, &s.CustomerID, &s.CustomerName, &s.IsWalkIn, &currency, &s.CreatedAt,
		&s.TotalAmount, &s.TotalPaid); err != nil {
		return Summary{}, err
	}
	s.Currency = money.Currency(currency)
	s.Remaining = s.TotalAmount.Sub(s.TotalPaid)
	return s, nil
}

func (r *repository) summaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.CustomerID != nil {
		add("i.customer_id = $%d", *filter.CustomerID)
	}
	if filter.From != nil {
		add("i.created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("i.created_at < $%d", *filter.To)
	}
	if filter.OpenOnly {
		conds = append(conds, "COALESCE(t.total, 0) > COALESCE(p.paid, 0)")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+summaryFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	query := "SELECT " + summaryColumns + summaryFrom + where + " ORDER BY i.created_at DESC, i.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	out, err := r.summaries(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Invoice, error) {
	return r.loadInvoice(ctx, id, false)
}

func (r *repository) loadInvoice(ctx context.Context, id int64, lock bool) (Invoice, error) {
	query := `SELECT i.id, i.customer_id, COALESCE(c.full_name, ''), i.is_walk_in, i.currency, i.created_at, i.updated_at
		FROM invoices i LEFT JOIN customers c ON c.id = i.customer_id WHERE i.id = $1`
	if lock {
		query += " FOR UPDATE OF i"
	}
	var inv Invoice
	var currency string
	err := r.db.QueryRow(ctx, query, id).Scan(&inv.ID, &inv.CustomerID, &inv.CustomerName, &inv.IsWalkIn,
		&currency, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	inv.Currency = money.Currency(currency)

	if inv.Lines, err = r.lines(ctx, id); err != nil {
		return Invoice{}, err
	}
	if inv.Payments, err = r.payments(ctx, "WHERE invoice_id = $1 ORDER BY created_at, id", id); err != nil {
		return Invoice{}, err
	}
	inv.finalize()
	return inv, nil
}

func (r *repository) lines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx,
		`SELECT l.id, l.position, l.feed_id, f.name, l.quantity_kg, l.price_type, l.unit_price
		 FROM invoice_lines l JOIN feeds f ON f.id = l.feed_id
		 WHERE l.invoice_id = $1 ORDER BY l.position, l.id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice lines: %w", err)
	}
	defer rows.Close()
	out := []Line{}
	for rows.Next() {
		var l Line
		var priceType string
		if err := rows.Scan(&l.ID, &l.Position, &l.FeedID, &l.FeedName, &l.QuantityKg, &priceType, &l.UnitPrice); err != nil {
			return nil, err
		}
		l.PriceType = money.PriceType(priceType)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) payments(ctx context.Context, tail string, args ...any) ([]Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, invoice_id, amount, currency, payment_method, notes, created_at FROM payments `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()
	out := []Payment{}
	for rows.Next() {
		var p Payment
		var currency string
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &currency, &p.PaymentMethod, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Currency = money.Currency(currency)
		out = append(out, p)
	}
	return out, rows.Err()
}

const debtsQuery = `
WITH s AS (SELECT i.customer_id, i.currency, COALESCE(t.total, 0) AS total, COALESCE(p.paid, 0) AS paid` + summaryFrom + `
	WHERE NOT i.is_walk_in)
SELECT s.customer_id, c.full_name, c.phone, s.currency, SUM(s.total), SUM(s.paid),
	COUNT(*) FILTER (WHERE s.total > s.paid)
FROM s JOIN customers c ON c.id = s.customer_id
%s
GROUP BY s.customer_id, c.full_name, c.phone, s.currency
HAVING SUM(s.total) > SUM(s.paid)
ORDER BY SUM(s.total) - SUM(s.paid) DESC, s.customer_id`

func (r *repository) debts(ctx context.Context, where string, args ...any) ([]CustomerDebt, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(debtsQuery, where), args...)
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	defer rows.Close()
	out := []CustomerDebt{}
	for rows.Next() {
		var d CustomerDebt
		var currency string
		if err := rows.Scan(&d.CustomerID, &d.CustomerName, &d.Phone, &currency, &d.TotalAmount, &d.TotalPaid,
			&d.OpenInvoices); err != nil {
			return nil, err
		}
		d.Currency = money.Currency(currency)
		d.Remaining = d.TotalAmount.Sub(d.TotalPaid)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) Debts(ctx context.Context) ([]CustomerDebt, error) {
	return r.debts(ctx, "")
}

func (r *repository) CustomerDebt(ctx context.Context, customerID int64) (CustomerDebtDetail, error) {
	detail := CustomerDebtDetail{CustomerID: customerID}
	err := r.db.QueryRow(ctx, `SELECT full_name, phone FROM customers WHERE id = $1`, customerID).
		Scan(&detail.CustomerName, &detail.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomerDebtDetail{}, ErrCustomerNotFound
	}
	if err != nil {
		return CustomerDebtDetail{}, fmt.Errorf("get customer: %w", err)
	}
	if detail.Debts, err = r.debts(ctx, "WHERE s.customer_id = $1", customerID); err != nil {
		return CustomerDebtDetail{}, err
	}
	open, err := r.summaries(ctx, "SELECT "+summaryColumns+summaryFrom+
		" WHERE i.customer_id = $1 AND COALESCE(t.total, 0) > COALESCE(p.paid, 0) ORDER BY i.created_at, i.id", customerID)
	if err != nil {
		return CustomerDebtDetail{}, fmt.Errorf("open invoices: %w", err)
	}
	if open == nil {
		open = []Summary{}
	}
	detail.OpenInvoices = open
	detail.Payments, err = r.payments(ctx,
		"WHERE invoice_id IN (SELECT id FROM invoices WHERE customer_id = $1) ORDER BY created_at DESC, id DESC", customerID)
	if err != nil {
		return CustomerDebtDetail{}, err
	}
	return detail, nil
}

func (t *txRepository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := t.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (t *txRepository) LockFeeds(ctx context.Context, ids []int64) (map[int64]FeedStock, error) {
	locked, err := t.feeds.LockForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]FeedStock, len(locked))
	for id, f := range locked {
		out[id] = FeedStock{ID: f.ID, Name: f.Name, AvailableKg: f.QuantityKg, Prices: f.Prices, Deleted: f.Deleted()}
	}
	return out, nil
}

func (t *txRepository) AdjustStock(ctx context.Context, feedID int64, delta decimal.Decimal) error {
	_, err := t.feeds.AdjustStock(ctx, feedID, delta)
	return err
}

func (t *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := t.db.QueryRow(ctx,
		`INSERT INTO invoices (customer_id, is_walk_in, currency, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		inv.CustomerID, inv.IsWalkIn, string(inv.Currency)).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	return inv, nil
}

func (t *txRepository) ReplaceLines(ctx context.Context, invoiceID int64, lines []Line) error {
	if _, err := t.db.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("clear invoice lines: %w", err)
	}
	for i, l := range lines {
		if _, err := t.db.Exec(ctx,
			`INSERT INTO invoice_lines (invoice_id, position, feed_id, quantity_kg, price_type, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			invoiceID, i+1, l.FeedID, l.QuantityKg, string(l.PriceType), l.UnitPrice); err != nil {
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}
	return nil
}

func (t *txRepository) LockInvoice(ctx context.Context, id int64) (Invoice, error) {
	return t.loadInvoice(ctx, id, true)
}

func (t *txRepository) OpenInvoices(ctx context.Context, customerID int64, currency money.Currency) ([]Summary, error) {
	if _, err := t.db.Exec(ctx,
		`SELECT id FROM invoices WHERE customer_id = $1 AND currency = $2 ORDER BY id FOR UPDATE`,
		customerID, string(currency)); err != nil {
		return nil, fmt.Errorf("lock customer invoices: %w", err)
	}
	out, err := t.summaries(ctx, "SELECT "+summaryColumns+summaryFrom+
		` WHERE i.customer_id = $1 AND i.currency = $2 AND COALESCE(t.total, 0) > COALESCE(p.paid, 0)
		 ORDER BY i.created_at, i.id`, customerID, string(currency))
	if err != nil {
		return nil, fmt.Errorf("open invoices: %w", err)
	}
	return out, nil
}

func (t *txRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := t.db.QueryRow(ctx,
		`INSERT INTO payments (invoice_id, amount, currency, payment_method, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, created_at`,
		p.InvoiceID, p.Amount, string(p.Currency), p.PaymentMethod, p.Notes).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

func (t *txRepository) TouchInvoice(ctx context.Context, id int64) error {
	_, err := t.db.Exec(ctx, `UPDATE invoices SET updated_at = NOW() WHERE id = $1`, id)
	return err
}
