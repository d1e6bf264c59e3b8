package customers

import (
	"context"
	"strings"

	"github.com/feedmill/feedmill/internal/shared"
)

type Service struct {
	repo        Repository
	invalidator shared.Invalidator
}

func NewService(repo Repository, invalidator shared.Invalidator) *Service {
	if invalidator == nil {
		invalidator = shared.NopInvalidator{}
	}
	return &Service{repo: repo, invalidator: invalidator}
}

func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return Customer{}, shared.Invalid("customer name is required")
	}
	c, err := s.repo.Create(ctx, Customer{
		FullName: name,
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
	})
	if err != nil {
		return Customer{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	changed := false
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return Customer{}, shared.Invalid("customer name is required")
		}
		existing.FullName = name
		changed = true
	}
	if req.Phone != nil {
		existing.Phone = strings.TrimSpace(*req.Phone)
		changed = true
	}
	if req.Address != nil {
		existing.Address = strings.TrimSpace(*req.Address)
		changed = true
	}
	if !changed {
		return existing, nil
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return Customer{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether id names a stored customer.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	return s.repo.List(ctx, filter)
}

// Delete removes a customer that no invoice references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, id); err != nil {
			return err
		}
		n, err := tx.InvoiceCount(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHasInvoices
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	_ = s.invalidator.Bump(ctx)
	return nil
}
