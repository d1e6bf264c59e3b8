package expenses

import (
	"context"
	"strings"
	"time"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

const dateLayout = "2006-01-02"

// Service manages vehicle and worker expenses.
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

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, shared.Invalid("type must be vehicle or worker")
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Create(ctx context.Context, in Input) (Expense, error) {
	e, err := fromInput(in)
	if err != nil {
		return Expense{}, err
	}
	out, err := s.repo.Create(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return out, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (Expense, error) {
	e, err := fromInput(in)
	if err != nil {
		return Expense{}, err
	}
	e.ID = id
	out, err := s.repo.Update(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.invalidator.Bump(ctx)
	return nil
}

func fromInput(in Input) (Expense, error) {
	typ := Type(strings.ToLower(strings.TrimSpace(in.Type)))
	if !typ.Valid() {
		return Expense{}, shared.Invalid("type must be vehicle or worker")
	}
	date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return Expense{}, shared.Invalid("date must be YYYY-MM-DD")
	}
	if !in.Amount.IsPositive() {
		return Expense{}, shared.Invalid("amount must be greater than zero")
	}
	currency := money.SYP
	if in.Currency != "" {
		if currency, err = money.ParseCurrency(in.Currency); err != nil {
			return Expense{}, shared.Invalid(err.Error())
		}
	}
	return Expense{
		Type:        typ,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Currency:    currency,
	}, nil
}
