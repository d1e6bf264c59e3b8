package expenses

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
)

// Type is the expense category.
type Type string

const (
	Vehicle Type = "vehicle"
	Worker  Type = "worker"
)

// Valid reports whether t is a supported category.
func (t Type) Valid() bool {
	return t == Vehicle || t == Worker
}

// Expense is an operating cost outside the invoice model.
type Expense struct {
	ID          int64           `json:"id"`
	Type        Type            `json:"type"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    money.Currency  `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ListFilter narrows expense listings.
type ListFilter struct {
	Type   Type
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Input is the body of POST and PUT /expenses. Date is YYYY-MM-DD.
type Input struct {
	Type        string          `json:"type" validate:"required,oneof=vehicle worker"`
	Date        string          `json:"date" validate:"required"`
	Description string          `json:"description" validate:"omitempty,max=1000"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"omitempty,oneof=SYP USD"`
}
