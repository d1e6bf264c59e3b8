package invoices

import (
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
)

// ResolvePrice looks up the price for the exact (price type, currency) pair.
// A missing entry resolves to zero, the "unconfigured" state that validation
// rejects; it never silently prices a line.
func ResolvePrice(prices []money.Price, priceType money.PriceType, currency money.Currency) decimal.Decimal {
	for _, p := range prices {
		if p.PriceType == priceType && p.Currency == currency {
			return p.PricePerKg
		}
	}
	return decimal.Zero
}
