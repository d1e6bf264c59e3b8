package purchases

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/platform/db"
)

// Repository reads purchases and opens write transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Purchase, int, error)
	Stats(ctx context.Context) (Stats, error)
}

// TxRepository is the write side bound to one transaction.
type TxRepository interface {
	LockFeed(ctx context.Context, id int64) (feeds.Feed, error)
	Insert(ctx context.Context, p Purchase) (Purchase, error)
	AddStock(ctx context.Context, feedID int64, qty decimal.Decimal) (decimal.Decimal, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx    pgx.Tx
	feeds feeds.Repository
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, feeds: feeds.NewTxRepository(tx)})
	})
}

func (t *txRepository) LockFeed(ctx context.Context, id int64) (feeds.Feed, error) {
	locked, err := t.feeds.LockForUpdate(ctx, []int64{id})
	if err != nil {
		return feeds.Feed{}, err
	}
	f, ok := locked[id]
	if !ok {
		return feeds.Feed{}, feeds.ErrNotFound
	}
	return f, nil
}

func (t *txRepository) Insert(ctx context.Context, p Purchase) (Purchase, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO purchases (feed_id, quantity_kg, price_per_kg, currency, supplier, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id, created_at`,
		p.FeedID, p.QuantityKg, p.PricePerKg, string(p.Currency), p.Supplier, p.Notes,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}
	return p, nil
}

func (t *txRepository) AddStock(ctx context.Context, feedID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	return t.feeds.AdjustStock(ctx, feedID, qty)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	where := ""
	args := []any{}
	if filter.FeedID != nil {
		args = append(args, *filter.FeedID)
		where = " WHERE p.feed_id = $1"
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	query := `SELECT p.id, p.feed_id, f.name, p.quantity_kg, p.price_per_kg, p.currency, p.supplier, p.notes, p.created_at
		FROM purchases p JOIN feeds f ON f.id = p.feed_id` + where + ` ORDER BY p.created_at DESC, p.id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		var p Purchase
		var currency string
		if err := rows.Scan(&p.ID, &p.FeedID, &p.FeedName, &p.QuantityKg, &p.PricePerKg, &currency,
			&p.Supplier, &p.Notes, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		p.Currency = money.Currency(currency)
		p.TotalCost = p.QuantityKg.Mul(p.PricePerKg)
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Stats(ctx context.Context) (Stats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT currency, COUNT(*), COALESCE(SUM(quantity_kg), 0), COALESCE(SUM(quantity_kg * price_per_kg), 0)
		 FROM purchases GROUP BY currency`)
	if err != nil {
		return Stats{}, fmt.Errorf("purchase stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{TotalQuantity: decimal.Zero, TotalSpent: map[money.Currency]decimal.Decimal{}}
	for rows.Next() {
		var currency string
		var count int
		var qty, spent decimal.Decimal
		if err := rows.Scan(&currency, &count, &qty, &spent); err != nil {
			return Stats{}, err
		}
		stats.TotalPurchases += count
		stats.TotalQuantity = stats.TotalQuantity.Add(qty)
		stats.TotalSpent[money.Currency(currency)] = spent
	}
	return stats, rows.Err()
}
