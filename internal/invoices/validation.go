package invoices

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

// Rejections raised by draft validation, payment checks and edits.
var (
	ErrCustomerRequired    = errors.New("invoices: customer required")
	ErrNoLines             = errors.New("invoices: no lines")
	ErrFeedRequired        = errors.New("invoices: feed required")
	ErrInvalidQuantity     = errors.New("invoices: invalid quantity")
	ErrInsufficientStock   = errors.New("invoices: insufficient stock")
	ErrPriceNotConfigured  = errors.New("invoices: price not configured")
	ErrWalkInMustPayInFull = errors.New("invoices: walk-in must pay in full")
	ErrPaymentExceedsTotal = errors.New("invoices: payment exceeds total")
	ErrInvalidAmount       = errors.New("invoices: invalid amount")
	ErrOverpayment         = errors.New("invoices: amount exceeds remaining")
	ErrInvoiceSettled      = errors.New("invoices: invoice settled")
	ErrTotalBelowPaid      = errors.New("invoices: total below paid")
	ErrCurrencyMismatch    = errors.New("invoices: currency mismatch")
	ErrInvalidCurrency     = errors.New("invoices: invalid currency")
	ErrImmutableField      = errors.New("invoices: immutable field")
)

// ValidationError is a rejection with a message meant for the operator.
// Line is the 1-based line number, or 0 for invoice level problems.
type ValidationError struct {
	Err     error
	Line    int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap exposes both the specific rejection and shared.ErrValidation.
func (e *ValidationError) Unwrap() []error {
	return []error{e.Err, shared.ErrValidation}
}

func invalid(kind error, line int, format string, args ...any) error {
	return &ValidationError{Err: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// DraftLine is an invoice line being composed.
type DraftLine struct {
	FeedID      int64
	FeedName    string
	AvailableKg decimal.Decimal
	QuantityKg  decimal.Decimal
	PriceType   money.PriceType
	UnitPrice   decimal.Decimal
}

// Draft is an invoice before submission.
type Draft struct {
	CustomerID     *int64
	IsWalkIn       bool
	Currency       money.Currency
	PriceType      money.PriceType
	InitialPayment decimal.Decimal
	Lines          []DraftLine
}

// Total returns Σ quantity × unit price over the draft lines.
func (d Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.QuantityKg.Mul(l.UnitPrice))
	}
	return total
}

// CustomerChecker reports whether a customer id refers to an existing customer.
type CustomerChecker func(id int64) bool

// Validate runs the pre-submit gate and returns the first failing check as a
// *ValidationError. Checks run in a fixed order: customer, line presence,
// each line in index order (feed, quantity, stock, price), then the initial
// payment rules.
func (d Draft) Validate(customerExists CustomerChecker) error {
	if !d.IsWalkIn {
		if d.CustomerID == nil || *d.CustomerID <= 0 || (customerExists != nil && !customerExists(*d.CustomerID)) {
			return invalid(ErrCustomerRequired, 0, "select a customer or mark the invoice as walk-in")
		}
	}
	if !d.Currency.Valid() {
		return invalid(ErrInvalidCurrency, 0, "unsupported currency %q", d.Currency)
	}
	if len(d.Lines) == 0 {
		return invalid(ErrNoLines, 0, "add at least one line")
	}
	for i, l := range d.Lines {
		n := i + 1
		if l.FeedID <= 0 {
			return invalid(ErrFeedRequired, n, "select a feed for line %d", n)
		}
		if !l.QuantityKg.IsPositive() {
			return invalid(ErrInvalidQuantity, n, "enter a valid quantity for line %d", n)
		}
		if l.QuantityKg.GreaterThan(l.AvailableKg) {
			return invalid(ErrInsufficientStock, n, "requested quantity (%s kg) exceeds available (%s kg) - %s",
				l.QuantityKg.String(), l.AvailableKg.String(), l.FeedName)
		}
		if !l.UnitPrice.IsPositive() {
			return invalid(ErrPriceNotConfigured, n, "no price configured for line %d (%s, %s); add prices for this feed",
				n, l.PriceType, d.Currency)
		}
	}

	total := d.Total()
	if d.InitialPayment.IsNegative() {
		return invalid(ErrInvalidAmount, 0, "initial payment must not be negative")
	}
	if d.IsWalkIn && !d.InitialPayment.Equal(total) {
		return invalid(ErrWalkInMustPayInFull, 0, "walk-in customers must pay the full amount (%s)", total.String())
	}
	if d.InitialPayment.GreaterThan(total) {
		return invalid(ErrPaymentExceedsTotal, 0, "initial payment (%s) exceeds invoice total (%s)",
			d.InitialPayment.String(), total.String())
	}
	return nil
}
