package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
)

// SalesFilter bounds a sales report by invoice date, inclusive on both ends.
type SalesFilter struct {
	Start time.Time
	End   time.Time
}

// CurrencyTotals are invoice sums in one currency.
type CurrencyTotals struct {
	Currency  money.Currency  `json:"currency"`
	Invoices  int             `json:"invoices"`
	Sales     decimal.Decimal `json:"sales"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
}

// FeedSales is the quantity and value of one feed sold in one currency.
type FeedSales struct {
	FeedID     int64           `json:"feed_id"`
	FeedName   string          `json:"feed_name"`
	Currency   money.Currency  `json:"currency"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	Amount     decimal.Decimal `json:"amount"`
}

// SalesReport summarises invoices in a date range.
type SalesReport struct {
	Start        string           `json:"start"`
	End          string           `json:"end"`
	InvoiceCount int              `json:"invoice_count"`
	Totals       []CurrencyTotals `json:"totals"`
	Feeds        []FeedSales      `json:"feeds"`
}

// InventoryItem is one feed's stock and prices.
type InventoryItem struct {
	ID         int64                              `json:"id"`
	Name       string                             `json:"name"`
	QuantityKg decimal.Decimal                    `json:"quantity_kg"`
	LowStock   bool                               `json:"low_stock"`
	Retail     map[money.Currency]decimal.Decimal `json:"retail"`
	Wholesale  map[money.Currency]decimal.Decimal `json:"wholesale"`
}

// InventoryReport lists active feeds against a low-stock threshold.
type InventoryReport struct {
	ThresholdKg   decimal.Decimal `json:"threshold_kg"`
	TotalKg       decimal.Decimal `json:"total_kg"`
	LowStockCount int             `json:"low_stock_count"`
	Items         []InventoryItem `json:"items"`
}

// DebtTotal is the outstanding balance in one currency.
type DebtTotal struct {
	Currency  money.Currency  `json:"currency"`
	Customers int             `json:"customers"`
	Invoices  int             `json:"invoices"`
	Remaining decimal.Decimal `json:"remaining"`
}

// DebtRow is one customer's remaining balance in one currency.
type DebtRow struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Currency     money.Currency  `json:"currency"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// DebtsReport totals outstanding customer debt.
type DebtsReport struct {
	Totals    []DebtTotal `json:"totals"`
	Customers []DebtRow   `json:"customers"`
}

// Counts are record counts shown on the dashboard.
type Counts struct {
	Feeds     int `json:"feeds"`
	Customers int `json:"customers"`
	Invoices  int `json:"invoices"`
}

// ExpenseTotal sums expenses of one type in one currency.
type ExpenseTotal struct {
	Type     string          `json:"type"`
	Currency money.Currency  `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// DashboardSummary is the landing page payload.
type DashboardSummary struct {
	Date            string           `json:"date"`
	Counts          Counts           `json:"counts"`
	TodaySales      []CurrencyTotals `json:"today_sales"`
	OutstandingDebt []DebtTotal      `json:"outstanding_debt"`
	MonthExpenses   []ExpenseTotal   `json:"month_expenses"`
	LowStockCount   int              `json:"low_stock_count"`
	ThresholdKg     decimal.Decimal  `json:"threshold_kg"`
}

// MonthlySales is the invoiced value of one calendar month in one currency.
type MonthlySales struct {
	Month    string          `json:"month"`
	Currency money.Currency  `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

// MonthlyKg is a kilogram figure for one calendar month.
type MonthlyKg struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// DashboardCharts feeds the landing page charts. Production is measured by
// the kilograms purchased into stock.
type DashboardCharts struct {
	Months          int            `json:"months"`
	SalesChart      []MonthlySales `json:"salesChart"`
	ProductionChart []MonthlyKg    `json:"productionChart"`
}
