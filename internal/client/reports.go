package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/reports"
)

// ReportsAPI wraps /reports and /dashboard.
type ReportsAPI struct{ c *Client }

// Reports returns the reports facade.
func (c *Client) Reports() ReportsAPI { return ReportsAPI{c} }

// Sales returns the sales report; zero times use the backend's month-to-date default.
func (a ReportsAPI) Sales(ctx context.Context, start, end time.Time) (reports.SalesReport, error) {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start", start.Format(time.DateOnly))
	}
	if !end.IsZero() {
		q.Set("end", end.Format(time.DateOnly))
	}
	var out reports.SalesReport
	err := a.c.do(ctx, http.MethodGet, "/reports/sales", q, nil, &out)
	return out, err
}

// Inventory returns stock levels; a zero threshold uses the server default.
func (a ReportsAPI) Inventory(ctx context.Context, threshold decimal.Decimal) (reports.InventoryReport, error) {
	q := url.Values{}
	if threshold.IsPositive() {
		q.Set("threshold", threshold.String())
	}
	var out reports.InventoryReport
	err := a.c.do(ctx, http.MethodGet, "/reports/inventory", q, nil, &out)
	return out, err
}

func (a ReportsAPI) Debts(ctx context.Context) (reports.DebtsReport, error) {
	var out reports.DebtsReport
	err := a.c.do(ctx, http.MethodGet, "/reports/debts", nil, nil, &out)
	return out, err
}

func (a ReportsAPI) Dashboard(ctx context.Context) (reports.DashboardSummary, error) {
	var out reports.DashboardSummary
	err := a.c.do(ctx, http.MethodGet, "/dashboard/summary", nil, nil, &out)
	return out, err
}

// Charts returns the monthly series; months <= 0 uses the server default.
func (a ReportsAPI) Charts(ctx context.Context, months int) (reports.DashboardCharts, error) {
	q := url.Values{}
	if months > 0 {
		q.Set("months", strconv.Itoa(months))
	}
	var out reports.DashboardCharts
	err := a.c.do(ctx, http.MethodGet, "/dashboard/charts", q, nil, &out)
	return out, err
}
