// Package money holds the currency and price tier vocabulary shared by the
// backend and the console, plus decimal helpers for kilograms and amounts.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, matching what the dashboard sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// Currency is the currency an invoice, price or payment is denominated in.
type Currency string

const (
	SYP Currency = "SYP"
	USD Currency = "USD"
)

// Currencies lists the supported currencies in display order.
var Currencies = []Currency{SYP, USD}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == SYP || c == USD
}

// ParseCurrency accepts any casing of a supported currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unsupported currency %q", s)
	}
	return c, nil
}

// PriceType is the price tier applied to every line of an invoice.
type PriceType string

const (
	Retail    PriceType = "retail"
	Wholesale PriceType = "wholesale"
)

// PriceTypes lists the supported tiers.
var PriceTypes = []PriceType{Retail, Wholesale}

// Valid reports whether p is a supported price tier.
func (p PriceType) Valid() bool {
	return p == Retail || p == Wholesale
}

// ParsePriceType accepts any casing of a supported tier.
func ParsePriceType(s string) (PriceType, error) {
	p := PriceType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unsupported price type %q", s)
	}
	return p, nil
}

// Sum adds the values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Plain formats d without exponent and without trailing zeros.
func Plain(d decimal.Decimal) string {
	return d.String()
}

// Price is one configured price per kilogram for a (price type, currency) key.
type Price struct {
	PriceType  PriceType       `json:"price_type"`
	Currency   Currency        `json:"currency"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
}
