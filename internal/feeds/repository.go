package feeds

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/platform/db"
	"github.com/feedmill/feedmill/internal/shared"
)

var (
	// ErrNotFound indicates the feed does not exist or was deleted.
	ErrNotFound = shared.NotFound("feed not found")
	// ErrNegativeStock indicates a stock move that would take quantity below zero.
	ErrNegativeStock = shared.Conflict("insufficient stock")
)

// Repository persists feeds, their prices and stock levels.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filter ListFilter) ([]Feed, int, error)
	Get(ctx context.Context, id int64) (Feed, error)
	Create(ctx context.Context, name string, quantity decimal.Decimal) (Feed, error)
	Rename(ctx context.Context, id int64, name string) error
	SoftDelete(ctx context.Context, id int64) error
	Prices(ctx context.Context, id int64) ([]money.Price, error)
	ReplacePrices(ctx context.Context, id int64, prices []money.Price) error
	LockForUpdate(ctx context.Context, ids []int64) (map[int64]Feed, error)
	AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	BelowThreshold(ctx context.Context, threshold decimal.Decimal) ([]Feed, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// NewTxRepository binds the repository to an open transaction owned by
// another module, so stock moves commit together with that module's rows.
func NewTxRepository(tx db.DBTX) Repository {
	return &repository{db: tx}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const feedColumns = `id, name, quantity_kg, deleted_at, created_at, updated_at`

func scanFeed(row pgx.Row) (Feed, error) {
	var f Feed
	err := row.Scan(&f.ID, &f.Name, &f.QuantityKg, &f.DeletedAt, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Feed, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if !filter.IncludeDeleted {
		where += " AND deleted_at IS NULL"
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += " AND name ILIKE $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM feeds "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feeds: %w", err)
	}

	query := "SELECT " + feedColumns + " FROM feeds " + where + " ORDER BY name, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var out []Feed
	var ids []int64
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
		ids = append(ids, f.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	prices, err := r.pricesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Prices = prices[out[i].ID]
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Feed, error) {
	f, err := scanFeed(r.db.QueryRow(ctx, "SELECT "+feedColumns+" FROM feeds WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Feed{}, ErrNotFound
	}
	if err != nil {
		return Feed{}, fmt.Errorf("get feed: %w", err)
	}
	prices, err := r.pricesFor(ctx, []int64{id})
	if err != nil {
		return Feed{}, err
	}
	f.Prices = prices[id]
	return f, nil
}

func (r *repository) Create(ctx context.Context, name string, quantity decimal.Decimal) (Feed, error) {
	f, err := scanFeed(r.db.QueryRow(ctx,
		`INSERT INTO feeds (name, quantity_kg, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
		 RETURNING `+feedColumns, name, quantity))
	if err != nil {
		return Feed{}, fmt.Errorf("insert feed: %w", err)
	}
	f.Prices = []money.Price{}
	return f, nil
}

func (r *repository) Rename(ctx context.Context, id int64, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE feeds SET name = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, name)
	if err != nil {
		return fmt.Errorf("rename feed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE feeds SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Prices(ctx context.Context, id int64) ([]money.Price, error) {
	prices, err := r.pricesFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if p := prices[id]; p != nil {
		return p, nil
	}
	return []money.Price{}, nil
}

func (r *repository) ReplacePrices(ctx context.Context, id int64, prices []money.Price) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM feed_prices WHERE feed_id = $1`, id); err != nil {
		return fmt.Errorf("clear prices: %w", err)
	}
	for _, p := range prices {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO feed_prices (feed_id, price_type, currency, price_per_kg, updated_at) VALUES ($1, $2, $3, $4, NOW())`,
			id, string(p.PriceType), string(p.Currency), p.PricePerKg); err != nil {
			return fmt.Errorf("insert price: %w", err)
		}
	}
	return nil
}

func (r *repository) LockForUpdate(ctx context.Context, ids []int64) (map[int64]Feed, error) {
	out := make(map[int64]Feed, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, "SELECT "+feedColumns+" FROM feeds WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, fmt.Errorf("lock feeds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		out[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	prices, err := r.pricesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, f := range out {
		f.Prices = prices[id]
		out[id] = f
	}
	return out, nil
}

func (r *repository) AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := r.db.QueryRow(ctx,
		`UPDATE feeds SET quantity_kg = quantity_kg + $2, updated_at = NOW()
		 WHERE id = $1 AND quantity_kg + $2 >= 0
		 RETURNING quantity_kg`, id, delta).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM feeds WHERE id = $1)`, id).Scan(&exists); err != nil {
			return decimal.Zero, err
		}
		if !exists {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, ErrNegativeStock
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("adjust stock: %w", err)
	}
	return qty, nil
}

func (r *repository) BelowThreshold(ctx context.Context, threshold decimal.Decimal) ([]Feed, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+feedColumns+" FROM feeds WHERE deleted_at IS NULL AND quantity_kg < $1 ORDER BY quantity_kg, name", threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock feeds: %w", err)
	}
	defer rows.Close()
	var out []Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) pricesFor(ctx context.Context, ids []int64) (map[int64][]money.Price, error) {
	out := make(map[int64][]money.Price, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT feed_id, price_type, currency, price_per_kg FROM feed_prices
		 WHERE feed_id = ANY($1) ORDER BY feed_id, price_type, currency`, ids)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var feedID int64
		var p money.Price
		var priceType, currency string
		if err := rows.Scan(&feedID, &priceType, &currency, &p.PricePerKg); err != nil {
			return nil, err
		}
		p.PriceType = money.PriceType(priceType)
		p.Currency = money.Currency(currency)
		out[feedID] = append(out[feedID], p)
	}
	return out, rows.Err()
}
