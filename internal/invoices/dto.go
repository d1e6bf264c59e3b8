package invoices

import (
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/shared"
)

// ItemInput is one requested line of POST/PUT /invoices.
type ItemInput struct {
	FeedID     int64           `json:"feedId"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	PriceType  string          `json:"price_type" validate:"required,oneof=retail wholesale"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// CreateRequest is the body of POST /invoices.
type CreateRequest struct {
	CustomerID     *int64          `json:"customerId"`
	IsWalkIn       bool            `json:"isWalkIn"`
	Currency       string          `json:"currency" validate:"required,oneof=SYP USD"`
	InitialPayment decimal.Decimal `json:"initialPayment"`
	PaymentMethod  string          `json:"paymentMethod" validate:"omitempty,max=50"`
	Items          []ItemInput     `json:"items" validate:"dive"`
}

// UpdateRequest is the body of PUT /invoices/{id}. Only the line set can
// change; customer, walk-in flag and currency must match the stored invoice
// when present. The dashboard re-sends the create body, so InitialPayment is
// accepted and ignored: money already paid only moves through POST /payments.
type UpdateRequest struct {
	CustomerID     *int64           `json:"customerId,omitempty"`
	IsWalkIn       *bool            `json:"isWalkIn,omitempty"`
	Currency       *string          `json:"currency,omitempty"`
	InitialPayment *decimal.Decimal `json:"initialPayment,omitempty"`
	Items          []ItemInput      `json:"items" validate:"dive"`
}

// PaymentRequest is the body of POST /payments. Exactly one of InvoiceID and
// CustomerID is set.
type PaymentRequest struct {
	InvoiceID     *int64          `json:"invoiceId"`
	CustomerID    *int64          `json:"customerId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,oneof=SYP USD"`
	PaymentMethod string          `json:"paymentMethod" validate:"omitempty,max=50"`
	Notes         string          `json:"notes" validate:"omitempty,max=1000"`
}

// PaymentResult lists the payments written for one request.
type PaymentResult struct {
	Payments []Payment       `json:"payments"`
	Total    decimal.Decimal `json:"total"`
}

// ListResponse is the data of GET /invoices.
type ListResponse struct {
	Invoices   []Summary         `json:"invoices"`
	Pagination shared.Pagination `json:"pagination"`
}
