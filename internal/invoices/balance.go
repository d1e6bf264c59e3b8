package invoices

import (
	"github.com/shopspring/decimal"
)

// Balance is the derived money state of an invoice.
type Balance struct {
	TotalAmount decimal.Decimal
	TotalPaid   decimal.Decimal
	Remaining   decimal.Decimal
}

// Settled reports whether nothing remains to be paid.
func (b Balance) Settled() bool {
	return !b.Remaining.IsPositive()
}

// ComputeBalance derives total, paid and remaining from lines and payments.
func ComputeBalance(lines []Line, payments []Payment) Balance {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.QuantityKg.Mul(l.UnitPrice))
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return Balance{TotalAmount: total, TotalPaid: paid, Remaining: total.Sub(paid)}
}

// CheckPayment enforces 0 < amount ≤ remaining on a balance.
func CheckPayment(b Balance, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid(ErrInvalidAmount, 0, "enter a valid amount")
	}
	if b.Settled() {
		return invalid(ErrInvoiceSettled, 0, "invoice is already fully paid")
	}
	if amount.GreaterThan(b.Remaining) {
		return invalid(ErrOverpayment, 0, "amount exceeds remaining balance (%s)", b.Remaining.String())
	}
	return nil
}

// CheckEditAgainstPaid refuses a replacement line set whose total would fall
// below what has already been paid.
func CheckEditAgainstPaid(newTotal, paid decimal.Decimal) error {
	if newTotal.LessThan(paid) {
		return invalid(ErrTotalBelowPaid, 0, "new invoice total (%s) is below the amount already paid (%s)",
			newTotal.String(), paid.String())
	}
	return nil
}

// AvailableForEdit is the stock a line may draw on while editing: the current
// stock plus what the invoice being edited already holds of that feed.
func AvailableForEdit(stock decimal.Decimal, feedID int64, existing []Line) decimal.Decimal {
	held := decimal.Zero
	for _, l := range existing {
		if l.FeedID == feedID {
			held = held.Add(l.QuantityKg)
		}
	}
	return stock.Add(held)
}

// Allocation is the share of a customer payment applied to one invoice.
type Allocation struct {
	InvoiceID int64
	Amount    decimal.Decimal
}

// AllocateOldestFirst spreads amount over open invoices in the given order
// (oldest first). It fails when amount exceeds the combined remaining balance.
func AllocateOldestFirst(open []Summary, amount decimal.Decimal) ([]Allocation, error) {
	if !amount.IsPositive() {
		return nil, invalid(ErrInvalidAmount, 0, "enter a valid amount")
	}
	debt := decimal.Zero
	for _, inv := range open {
		if inv.Remaining.IsPositive() {
			debt = debt.Add(inv.Remaining)
		}
	}
	if !debt.IsPositive() {
		return nil, invalid(ErrInvoiceSettled, 0, "customer has no outstanding debt")
	}
	if amount.GreaterThan(debt) {
		return nil, invalid(ErrOverpayment, 0, "amount exceeds remaining debt (%s)", debt.String())
	}
	left := amount
	var out []Allocation
	for _, inv := range open {
		if !left.IsPositive() {
			break
		}
		if !inv.Remaining.IsPositive() {
			continue
		}
		share := decimal.Min(left, inv.Remaining)
		out = append(out, Allocation{InvoiceID: inv.ID, Amount: share})
		left = left.Sub(share)
	}
	return out, nil
}
