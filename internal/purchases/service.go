package purchases

import (
	"context"

	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

// Service records stock receipts.
type Service struct {
	repo        Repository
	invalidator shared.Invalidator
}

// NewService builds a Service.
func NewService(repo Repository, invalidator shared.Invalidator) *Service {
	if invalidator == nil {
		invalidator = shared.NopInvalidator{}
	}
	return &Service{repo: repo, invalidator: invalidator}
}

// Create stores a purchase and raises the feed's quantity in the same transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Purchase, error) {
	if !req.QuantityKg.IsPositive() {
		return Purchase{}, shared.Invalid("quantity must be greater than zero")
	}
	if req.PricePerKg.IsNegative() {
		return Purchase{}, shared.Invalid("price must not be negative")
	}
	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return Purchase{}, shared.Invalid(err.Error())
	}

	var out Purchase
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		feed, err := tx.LockFeed(ctx, req.FeedID)
		if err != nil {
			return err
		}
		if feed.Deleted() {
			return feeds.ErrNotFound
		}
		p, err := tx.Insert(ctx, Purchase{
			FeedID:     feed.ID,
			FeedName:   feed.Name,
			QuantityKg: req.QuantityKg,
			PricePerKg: req.PricePerKg,
			TotalCost:  req.QuantityKg.Mul(req.PricePerKg),
			Currency:   currency,
			Supplier:   req.Supplier,
			Notes:      req.Notes,
		})
		if err != nil {
			return err
		}
		if _, err := tx.AddStock(ctx, feed.ID, req.QuantityKg); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return out, nil
}

// List returns purchases newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	return s.repo.List(ctx, filter)
}

// Stats returns purchase totals.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}
