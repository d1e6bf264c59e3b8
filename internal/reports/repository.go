package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
)

// Repository runs the aggregate queries behind reports.
type Repository interface {
	SalesTotals(ctx context.Context, from, to time.Time) ([]CurrencyTotals, error)
	SalesByFeed(ctx context.Context, from, to time.Time) ([]FeedSales, error)
	Inventory(ctx context.Context) ([]InventoryItem, error)
	DebtTotals(ctx context.Context) ([]DebtTotal, error)
	DebtRows(ctx context.Context) ([]DebtRow, error)
	Counts(ctx context.Context) (Counts, error)
	ExpenseTotals(ctx context.Context, from, to time.Time) ([]ExpenseTotal, error)
	MonthlySales(ctx context.Context, from, to time.Time) ([]MonthlySales, error)
	MonthlyPurchasedKg(ctx context.Context, from, to time.Time) ([]MonthlyKg, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceTotals = `
WITH s AS (
	SELECT i.id, i.customer_id, i.currency, i.created_at,
		COALESCE((SELECT SUM(quantity_kg * unit_price) FROM invoice_lines WHERE invoice_id = i.id), 0) AS total,
		COALESCE((SELECT SUM(amount) FROM payments WHERE invoice_id = i.id), 0) AS paid
	FROM invoices i
)`

func (r *repository) SalesTotals(ctx context.Context, from, to time.Time) ([]CurrencyTotals, error) {
	rows, err := r.pool.Query(ctx, invoiceTotals+`
		SELECT currency, COUNT(*), SUM(total), SUM(paid) FROM s
		WHERE created_at >= $1 AND created_at < $2 GROUP BY currency ORDER BY currency`, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}
	defer rows.Close()
	out := []CurrencyTotals{}
	for rows.Next() {
		var t CurrencyTotals
		var currency string
		if err := rows.Scan(&currency, &t.Invoices, &t.Sales, &t.Paid); err != nil {
			return nil, err
		}
		t.Currency = money.Currency(currency)
		t.Remaining = t.Sales.Sub(t.Paid)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) SalesByFeed(ctx context.Context, from, to time.Time) ([]FeedSales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.name, i.currency, SUM(l.quantity_kg), SUM(l.quantity_kg * l.unit_price)
		FROM invoice_lines l
		JOIN invoices i ON i.id = l.invoice_id
		JOIN feeds f ON f.id = l.feed_id
		WHERE i.created_at >= $1 AND i.created_at < $2
		GROUP BY f.id, f.name, i.currency
		ORDER BY SUM(l.quantity_kg) DESC, f.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales by feed: %w", err)
	}
	defer rows.Close()
	out := []FeedSales{}
	for rows.Next() {
		var s FeedSales
		var currency string
		if err := rows.Scan(&s.FeedID, &s.FeedName, &currency, &s.QuantityKg, &s.Amount); err != nil {
			return nil, err
		}
		s.Currency = money.Currency(currency)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Inventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.name, f.quantity_kg, p.price_type, p.currency, p.price_per_kg
		FROM feeds f LEFT JOIN feed_prices p ON p.feed_id = f.id
		WHERE f.deleted_at IS NULL
		ORDER BY f.name, f.id`)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	defer rows.Close()
	var out []InventoryItem
	index := map[int64]int{}
	for rows.Next() {
		var id int64
		var name string
		var qty decimal.Decimal
		var priceType, currency *string
		var price decimal.NullDecimal
		if err := rows.Scan(&id, &name, &qty, &priceType, &currency, &price); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			out = append(out, InventoryItem{
				ID: id, Name: name, QuantityKg: qty,
				Retail:    map[money.Currency]decimal.Decimal{},
				Wholesale: map[money.Currency]decimal.Decimal{},
			})
			i = len(out) - 1
			index[id] = i
		}
		if priceType == nil || currency == nil || !price.Valid {
			continue
		}
		switch money.PriceType(*priceType) {
		case money.Retail:
			out[i].Retail[money.Currency(*currency)] = price.Decimal
		case money.Wholesale:
			out[i].Wholesale[money.Currency(*currency)] = price.Decimal
		}
	}
	return out, rows.Err()
}

func (r *repository) DebtTotals(ctx context.Context) ([]DebtTotal, error) {
	rows, err := r.pool.Query(ctx, invoiceTotals+`
		SELECT currency, COUNT(DISTINCT customer_id), COUNT(*), SUM(total - paid) FROM s
		WHERE customer_id IS NOT NULL AND total > paid GROUP BY currency ORDER BY currency`)
	if err != nil {
		return nil, fmt.Errorf("debt totals: %w", err)
	}
	defer rows.Close()
	out := []DebtTotal{}
	for rows.Next() {
		var t DebtTotal
		var currency string
		if err := rows.Scan(&currency, &t.Customers, &t.Invoices, &t.Remaining); err != nil {
			return nil, err
		}
		t.Currency = money.Currency(currency)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) DebtRows(ctx context.Context) ([]DebtRow, error) {
	rows, err := r.pool.Query(ctx, invoiceTotals+`
		SELECT s.customer_id, c.full_name, s.currency, SUM(s.total - s.paid) FROM s
		JOIN customers c ON c.id = s.customer_id
		WHERE s.total > s.paid
		GROUP BY s.customer_id, c.full_name, s.currency
		ORDER BY SUM(s.total - s.paid) DESC, s.customer_id`)
	if err != nil {
		return nil, fmt.Errorf("debt rows: %w", err)
	}
	defer rows.Close()
	out := []DebtRow{}
	for rows.Next() {
		var d DebtRow
		var currency string
		if err := rows.Scan(&d.CustomerID, &d.CustomerName, &currency, &d.Remaining); err != nil {
			return nil, err
		}
		d.Currency = money.Currency(currency)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM feeds WHERE deleted_at IS NULL),
		(SELECT COUNT(*) FROM customers),
		(SELECT COUNT(*) FROM invoices)`).Scan(&c.Feeds, &c.Customers, &c.Invoices)
	if err != nil {
		return Counts{}, fmt.Errorf("counts: %w", err)
	}
	return c, nil
}

func (r *repository) ExpenseTotals(ctx context.Context, from, to time.Time) ([]ExpenseTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT expense_type, currency, SUM(amount) FROM expenses
		WHERE expense_date >= $1 AND expense_date < $2
		GROUP BY expense_type, currency ORDER BY expense_type, currency`, from, to)
	if err != nil {
		return nil, fmt.Errorf("expense totals: %w", err)
	}
	defer rows.Close()
	out := []ExpenseTotal{}
	for rows.Next() {
		var e ExpenseTotal
		var currency string
		if err := rows.Scan(&e.Type, &currency, &e.Amount); err != nil {
			return nil, err
		}
		e.Currency = money.Currency(currency)
		out = append(out, e)
	}
	return out, rows.Err()
}

const monthLayout = "2006-01"

func (r *repository) MonthlySales(ctx context.Context, from, to time.Time) ([]MonthlySales, error) {
	rows, err := r.pool.Query(ctx, invoiceTotals+`
		SELECT date_trunc('month', created_at), currency, SUM(total) FROM s
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1, currency ORDER BY 1, currency`, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}
	defer rows.Close()
	out := []MonthlySales{}
	for rows.Next() {
		var m MonthlySales
		var month time.Time
		var currency string
		if err := rows.Scan(&month, &currency, &m.Value); err != nil {
			return nil, err
		}
		m.Month = month.Format(monthLayout)
		m.Currency = money.Currency(currency)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) MonthlyPurchasedKg(ctx context.Context, from, to time.Time) ([]MonthlyKg, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('month', created_at), SUM(quantity_kg) FROM purchases
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1 ORDER BY 1`, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly purchases: %w", err)
	}
	defer rows.Close()
	out := []MonthlyKg{}
	for rows.Next() {
		var m MonthlyKg
		var month time.Time
		if err := rows.Scan(&month, &m.Value); err != nil {
			return nil, err
		}
		m.Month = month.Format(monthLayout)
		out = append(out, m)
	}
	return out, rows.Err()
}
