package feeds

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
)

// Feed is a raw material tracked by weight.
type Feed struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	Prices     []money.Price   `json:"prices"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Deleted reports whether the feed was soft-deleted.
func (f Feed) Deleted() bool {
	return f.DeletedAt != nil
}

// ListFilter narrows feed listings.
type ListFilter struct {
	Search         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}
