package feeds

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

// Service coordinates feed catalogue operations.
type Service struct {
	repo        Repository
	invalidator shared.Invalidator
}

// NewService builds Service. A nil invalidator disables cache bumps.
func NewService(repo Repository, invalidator shared.Invalidator) *Service {
	if invalidator == nil {
		invalidator = shared.NopInvalidator{}
	}
	return &Service{repo: repo, invalidator: invalidator}
}

// List returns active feeds with their prices.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Feed, int, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a feed, including soft-deleted ones so history stays readable.
func (s *Service) Get(ctx context.Context, id int64) (Feed, error) {
	if id <= 0 {
		return Feed{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create adds a feed with an opening stock level.
func (s *Service) Create(ctx context.Context, req CreateFeedRequest) (Feed, error) {
	name, err := validateName(req.Name)
	if err != nil {
		return Feed{}, err
	}
	if err := validateOpeningQuantity(req.QuantityKg); err != nil {
		return Feed{}, err
	}
	feed, err := s.repo.Create(ctx, name, req.QuantityKg)
	if err != nil {
		return Feed{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return feed, nil
}

// Rename changes a feed's display name. Historical invoice lines show the new name.
func (s *Service) Rename(ctx context.Context, id int64, name string) (Feed, error) {
	name, err := validateName(name)
	if err != nil {
		return Feed{}, err
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return Feed{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes a feed. Invoice lines keep their captured price and quantity.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	_ = s.invalidator.Bump(ctx)
	return nil
}

// Prices returns the configured price set of a feed.
func (s *Service) Prices(ctx context.Context, id int64) ([]money.Price, error) {
	feed, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if feed.Prices == nil {
		return []money.Price{}, nil
	}
	return feed.Prices, nil
}

// ReplacePrices swaps the whole price set of a feed in one transaction.
func (s *Service) ReplacePrices(ctx context.Context, id int64, prices []money.Price) ([]money.Price, error) {
	if err := CheckPriceSet(prices); err != nil {
		return nil, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		locked, err := tx.LockForUpdate(ctx, []int64{id})
		if err != nil {
			return err
		}
		feed, ok := locked[id]
		if !ok || feed.Deleted() {
			return ErrNotFound
		}
		return tx.ReplacePrices(ctx, id, prices)
	})
	if err != nil {
		return nil, err
	}
	_ = s.invalidator.Bump(ctx)
	return s.Prices(ctx, id)
}

// LowStock lists active feeds whose quantity is below threshold.
func (s *Service) LowStock(ctx context.Context, threshold decimal.Decimal) ([]Feed, error) {
	return s.repo.BelowThreshold(ctx, threshold)
}
