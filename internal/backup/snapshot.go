package backup

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormatVersion is bumped whenever the snapshot layout changes.
const FormatVersion = 1

// Snapshot is a full copy of the business tables. Users are not included so
// a restore never locks operators out.
type Snapshot struct {
	Version      int           `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	Feeds        []FeedRow     `json:"feeds"`
	FeedPrices   []PriceRow    `json:"feed_prices"`
	Customers    []CustomerRow `json:"customers"`
	Purchases    []PurchaseRow `json:"purchases"`
	Invoices     []InvoiceRow  `json:"invoices"`
	InvoiceLines []LineRow     `json:"invoice_lines"`
	Payments     []PaymentRow  `json:"payments"`
	Expenses     []ExpenseRow  `json:"expenses"`
}

type FeedRow struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type PriceRow struct {
	ID         int64           `json:"id"`
	FeedID     int64           `json:"feed_id"`
	PriceType  string          `json:"price_type"`
	Currency   string          `json:"currency"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type CustomerRow struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PurchaseRow struct {
	ID         int64           `json:"id"`
	FeedID     int64           `json:"feed_id"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	Currency   string          `json:"currency"`
	Supplier   string          `json:"supplier"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
}

type InvoiceRow struct {
	ID         int64     `json:"id"`
	CustomerID *int64    `json:"customer_id"`
	IsWalkIn   bool      `json:"is_walk_in"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type LineRow struct {
	ID         int64           `json:"id"`
	InvoiceID  int64           `json:"invoice_id"`
	Position   int             `json:"position"`
	FeedID     int64           `json:"feed_id"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	PriceType  string          `json:"price_type"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type PaymentRow struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ExpenseRow struct {
	ID          int64           `json:"id"`
	ExpenseType string          `json:"expense_type"`
	ExpenseDate time.Time       `json:"expense_date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Check verifies the version and the references between tables.
func (s *Snapshot) Check() error {
	if s.Version != FormatVersion {
		return errUnsupportedVersion(s.Version)
	}
	feeds := make(map[int64]bool, len(s.Feeds))
	for _, f := range s.Feeds {
		if f.QuantityKg.IsNegative() {
			return errInvalid("feed %d has negative quantity", f.ID)
		}
		feeds[f.ID] = true
	}
	customers := make(map[int64]bool, len(s.Customers))
	for _, c := range s.Customers {
		customers[c.ID] = true
	}
	for _, p := range s.FeedPrices {
		if !feeds[p.FeedID] {
			return errInvalid("price %d references unknown feed %d", p.ID, p.FeedID)
		}
	}
	for _, p := range s.Purchases {
		if !feeds[p.FeedID] {
			return errInvalid("purchase %d references unknown feed %d", p.ID, p.FeedID)
		}
	}
	invoices := make(map[int64]bool, len(s.Invoices))
	for _, inv := range s.Invoices {
		if inv.CustomerID != nil && !customers[*inv.CustomerID] {
			return errInvalid("invoice %d references unknown customer %d", inv.ID, *inv.CustomerID)
		}
		if inv.IsWalkIn == (inv.CustomerID != nil) {
			return errInvalid("invoice %d must have a customer or be walk-in", inv.ID)
		}
		invoices[inv.ID] = true
	}
	totals := make(map[int64]decimal.Decimal, len(s.Invoices))
	for _, l := range s.InvoiceLines {
		if !invoices[l.InvoiceID] || !feeds[l.FeedID] {
			return errInvalid("invoice line %d has a dangling reference", l.ID)
		}
		totals[l.InvoiceID] = totals[l.InvoiceID].Add(l.QuantityKg.Mul(l.UnitPrice))
	}
	paid := make(map[int64]decimal.Decimal, len(s.Invoices))
	for _, p := range s.Payments {
		if !invoices[p.InvoiceID] {
			return errInvalid("payment %d references unknown invoice %d", p.ID, p.InvoiceID)
		}
		paid[p.InvoiceID] = paid[p.InvoiceID].Add(p.Amount)
	}
	for id, amount := range paid {
		if amount.GreaterThan(totals[id]) {
			return errInvalid("invoice %d is paid beyond its total", id)
		}
	}
	return nil
}
