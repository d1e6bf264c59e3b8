package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

type memoryRepo struct {
	feeds     map[int64]feeds.Feed
	purchases []Purchase
	failStock bool
}

type memoryTx struct {
	repo      *memoryRepo
	feeds     map[int64]feeds.Feed
	purchases []Purchase
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{feeds: map[int64]feeds.Feed{
		1: {ID: 1, Name: "ذرة صفراء", QuantityKg: decimal.NewFromInt(100)},
	}}
}

// WithTx applies the staged writes only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := make(map[int64]feeds.Feed, len(r.feeds))
	for k, v := range r.feeds {
		staged[k] = v
	}
	tx := &memoryTx{repo: r, feeds: staged}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.feeds = tx.feeds
	r.purchases = append(r.purchases, tx.purchases...)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	return r.purchases, len(r.purchases), nil
}

func (r *memoryRepo) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{TotalQuantity: decimal.Zero, TotalSpent: map[money.Currency]decimal.Decimal{}}
	for _, p := range r.purchases {
		stats.TotalPurchases++
		stats.TotalQuantity = stats.TotalQuantity.Add(p.QuantityKg)
		stats.TotalSpent[p.Currency] = stats.TotalSpent[p.Currency].Add(p.TotalCost)
	}
	return stats, nil
}

func (t *memoryTx) LockFeed(ctx context.Context, id int64) (feeds.Feed, error) {
	f, ok := t.feeds[id]
	if !ok {
		return feeds.Feed{}, feeds.ErrNotFound
	}
	return f, nil
}

func (t *memoryTx) Insert(ctx context.Context, p Purchase) (Purchase, error) {
	p.ID = int64(len(t.repo.purchases) + len(t.purchases) + 1)
	p.CreatedAt = time.Now()
	t.purchases = append(t.purchases, p)
	return p, nil
}

func (t *memoryTx) AddStock(ctx context.Context, feedID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	if t.repo.failStock {
		return decimal.Zero, feeds.ErrNegativeStock
	}
	f := t.feeds[feedID]
	f.QuantityKg = f.QuantityKg.Add(qty)
	t.feeds[feedID] = f
	return f.QuantityKg, nil
}

func TestPurchaseIncreasesStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{
		FeedID:     1,
		QuantityKg: decimal.NewFromInt(250),
		PricePerKg: decimal.NewFromInt(2000),
		Currency:   "SYP",
		Supplier:   "مطاحن الشمال",
	})
	require.NoError(t, err)
	require.Equal(t, "ذرة صفراء", p.FeedName)
	require.True(t, p.TotalCost.Equal(decimal.NewFromInt(500000)))
	require.True(t, repo.feeds[1].QuantityKg.Equal(decimal.NewFromInt(350)))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalPurchases)
	require.True(t, stats.TotalSpent[money.SYP].Equal(decimal.NewFromInt(500000)))
}

func TestPurchaseRejections(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{FeedID: 1, QuantityKg: decimal.Zero, Currency: "SYP"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateRequest{FeedID: 1, QuantityKg: decimal.NewFromInt(1), PricePerKg: decimal.NewFromInt(-1), Currency: "SYP"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateRequest{FeedID: 1, QuantityKg: decimal.NewFromInt(1), Currency: "EUR"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateRequest{FeedID: 9, QuantityKg: decimal.NewFromInt(1), Currency: "SYP"})
	require.ErrorIs(t, err, feeds.ErrNotFound)

	now := time.Now()
	f := repo.feeds[1]
	f.DeletedAt = &now
	repo.feeds[1] = f
	_, err = svc.Create(ctx, CreateRequest{FeedID: 1, QuantityKg: decimal.NewFromInt(1), Currency: "SYP"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPurchaseRollsBackOnStockFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failStock = true
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateRequest{FeedID: 1, QuantityKg: decimal.NewFromInt(5), Currency: "USD"})
	require.Error(t, err)
	require.Empty(t, repo.purchases)
	require.True(t, repo.feeds[1].QuantityKg.Equal(decimal.NewFromInt(100)))
}
