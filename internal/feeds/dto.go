package feeds

import (
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

// CreateFeedRequest is the body of POST /feeds.
type CreateFeedRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
}

// RenameFeedRequest is the body of PUT /feeds/{id}/rename.
type RenameFeedRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// ReplacePricesRequest is the body of PUT /feeds/{id}/prices.
type ReplacePricesRequest struct {
	Prices []PriceInput `json:"prices" validate:"dive"`
}

// PriceInput is one price in a replacement set.
type PriceInput struct {
	PriceType  string          `json:"price_type" validate:"required,oneof=retail wholesale"`
	Currency   string          `json:"currency" validate:"required,oneof=SYP USD"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
}

// ListResponse is the data of GET /feeds.
type ListResponse struct {
	Feeds      []Feed            `json:"feeds"`
	Pagination shared.Pagination `json:"pagination"`
}

func (r ReplacePricesRequest) toPrices() []money.Price {
	out := make([]money.Price, 0, len(r.Prices))
	for _, p := range r.Prices {
		out = append(out, money.Price{
			PriceType:  money.PriceType(p.PriceType),
			Currency:   money.Currency(p.Currency),
			PricePerKg: p.PricePerKg,
		})
	}
	return out
}
