package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
)

// FeedStock is the view of a feed needed to price and bound an invoice line.
type FeedStock struct {
	ID          int64
	Name        string
	AvailableKg decimal.Decimal
	Prices      []money.Price
	Deleted     bool
}

// Invoice is a persisted sales document with its derived balance.
type Invoice struct {
	ID           int64           `json:"id"`
	CustomerID   *int64          `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	IsWalkIn     bool            `json:"is_walk_in"`
	Currency     money.Currency  `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Lines        []Line          `json:"lines"`
	Payments     []Payment       `json:"payments"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Remaining    decimal.Decimal `json:"remaining"`
	Settled      bool            `json:"settled"`
}

// Line is an invoice line with its captured unit price.
type Line struct {
	ID         int64           `json:"id"`
	Position   int             `json:"position"`
	FeedID     int64           `json:"feed_id"`
	FeedName   string          `json:"feed_name"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	PriceType  money.PriceType `json:"price_type"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Payment is an append-only money receipt against an invoice.
type Payment struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      money.Currency  `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Summary is a list row of an invoice.
type Summary struct {
	ID           int64           `json:"id"`
	CustomerID   *int64          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	IsWalkIn     bool            `json:"is_walk_in"`
	Currency     money.Currency  `json:"currency"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Remaining    decimal.Decimal `json:"remaining"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CustomerDebt aggregates remaining balances of one customer in one currency.
type CustomerDebt struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	Currency     money.Currency  `json:"currency"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Remaining    decimal.Decimal `json:"remaining"`
	OpenInvoices int             `json:"open_invoices"`
}

// CustomerDebtDetail is the per-customer debt page.
type CustomerDebtDetail struct {
	CustomerID   int64          `json:"customer_id"`
	CustomerName string         `json:"customer_name"`
	Phone        string         `json:"phone"`
	Debts        []CustomerDebt `json:"debts"`
	OpenInvoices []Summary      `json:"open_invoices"`
	Payments     []Payment      `json:"payments"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	CustomerID *int64
	From       *time.Time
	To         *time.Time
	OpenOnly   bool
	Limit      int
	Offset     int
}

// finalize fills derived totals from lines and payments.
func (inv *Invoice) finalize() {
	for i := range inv.Lines {
		inv.Lines[i].LineTotal = inv.Lines[i].QuantityKg.Mul(inv.Lines[i].UnitPrice)
	}
	b := ComputeBalance(inv.Lines, inv.Payments)
	inv.TotalAmount = b.TotalAmount
	inv.TotalPaid = b.TotalPaid
	inv.Remaining = b.Remaining
	inv.Settled = b.Settled()
}
