package feeds

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.Invalid("feed name is required")
	}
	return name, nil
}

func validateOpeningQuantity(q decimal.Decimal) error {
	if q.IsNegative() {
		return shared.Invalid("quantity must not be negative")
	}
	return nil
}

// CheckPriceSet rejects a replacement price set with a duplicate key, an
// unsupported tier or currency, or a negative value.
func CheckPriceSet(prices []money.Price) error {
	type key struct {
		t money.PriceType
		c money.Currency
	}
	seen := make(map[key]struct{}, len(prices))
	for _, p := range prices {
		if !p.PriceType.Valid() {
			return shared.Invalid(fmt.Sprintf("unsupported price type %q", p.PriceType))
		}
		if !p.Currency.Valid() {
			return shared.Invalid(fmt.Sprintf("unsupported currency %q", p.Currency))
		}
		if p.PricePerKg.IsNegative() {
			return shared.Invalid(fmt.Sprintf("price for %s/%s must not be negative", p.PriceType, p.Currency))
		}
		k := key{p.PriceType, p.Currency}
		if _, dup := seen[k]; dup {
			return shared.Invalid(fmt.Sprintf("duplicate price for %s/%s", p.PriceType, p.Currency))
		}
		seen[k] = struct{}{}
	}
	return nil
}
