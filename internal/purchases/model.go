package purchases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
)

// Purchase is a stock receipt of one feed.
type Purchase struct {
	ID         int64           `json:"id"`
	FeedID     int64           `json:"feed_id"`
	FeedName   string          `json:"feed_name"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	Currency   money.Currency  `json:"currency"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	Supplier   string          `json:"supplier"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Stats summarises all purchases.
type Stats struct {
	TotalPurchases int                                `json:"total_purchases"`
	TotalQuantity  decimal.Decimal                    `json:"total_quantity"`
	TotalSpent     map[money.Currency]decimal.Decimal `json:"total_spent"`
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	FeedID *int64
	Limit  int
	Offset int
}

// CreateRequest is the body of POST /purchases.
type CreateRequest struct {
	FeedID     int64           `json:"feedId" validate:"required,gt=0"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	Currency   string          `json:"currency" validate:"required,oneof=SYP USD"`
	Supplier   string          `json:"supplier" validate:"omitempty,max=200"`
	Notes      string          `json:"notes" validate:"omitempty,max=1000"`
}
