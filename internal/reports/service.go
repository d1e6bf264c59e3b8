package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

const (
	dateLayout    = "2006-01-02"
	defaultMonths = 6
	maxMonths     = 24
)

// Service builds reports and caches them.
type Service struct {
	repo      Repository
	cache     *Cache
	threshold decimal.Decimal
	now       func() time.Time
}

// NewService wires a Repository with a Cache. threshold is the default
// low-stock level in kilograms.
func NewService(repo Repository, cache *Cache, threshold decimal.Decimal) *Service {
	return &Service{repo: repo, cache: cache, threshold: threshold, now: time.Now}
}

// Sales summarises invoices created between Start and End inclusive.
func (s *Service) Sales(ctx context.Context, filter SalesFilter) (SalesReport, error) {
	start, end := filter.Start, filter.End
	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	}
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return SalesReport{}, shared.Invalid("end must not be before start")
	}

	key, err := s.cache.BuildKey(ctx, "sales", start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return SalesReport{}, err
	}
	var report SalesReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		out := SalesReport{Start: start.Format(dateLayout), End: end.Format(dateLayout)}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			totals, err := s.repo.SalesTotals(gctx, start, end.AddDate(0, 0, 1))
			out.Totals = totals
			return err
		})
		g.Go(func() error {
			feeds, err := s.repo.SalesByFeed(gctx, start, end.AddDate(0, 0, 1))
			out.Feeds = feeds
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, t := range out.Totals {
			out.InvoiceCount += t.Invoices
		}
		return out, nil
	})
	return report, err
}

// Inventory lists active feeds and flags those below threshold. A zero
// threshold falls back to the configured default.
func (s *Service) Inventory(ctx context.Context, threshold decimal.Decimal) (InventoryReport, error) {
	if threshold.IsNegative() {
		return InventoryReport{}, shared.Invalid("threshold must not be negative")
	}
	if threshold.IsZero() {
		threshold = s.threshold
	}
	key, err := s.cache.BuildKey(ctx, "inventory", threshold.String())
	if err != nil {
		return InventoryReport{}, err
	}
	var report InventoryReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		items, err := s.repo.Inventory(ctx)
		if err != nil {
			return nil, err
		}
		out := InventoryReport{ThresholdKg: threshold, TotalKg: decimal.Zero, Items: items}
		if out.Items == nil {
			out.Items = []InventoryItem{}
		}
		for i := range out.Items {
			out.TotalKg = out.TotalKg.Add(out.Items[i].QuantityKg)
			if out.Items[i].QuantityKg.LessThan(threshold) {
				out.Items[i].LowStock = true
				out.LowStockCount++
			}
		}
		return out, nil
	})
	return report, err
}

// Debts totals outstanding customer debt per currency.
func (s *Service) Debts(ctx context.Context) (DebtsReport, error) {
	key, err := s.cache.BuildKey(ctx, "debts")
	if err != nil {
		return DebtsReport{}, err
	}
	var report DebtsReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		var out DebtsReport
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			out.Totals, err = s.repo.DebtTotals(gctx)
			return err
		})
		g.Go(func() (err error) {
			out.Customers, err = s.repo.DebtRows(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
	return report, err
}

// Dashboard returns the landing summary for today.
func (s *Service) Dashboard(ctx context.Context) (DashboardSummary, error) {
	today := truncateDay(s.now())
	key, err := s.cache.BuildKey(ctx, "dashboard", today.Format(dateLayout), s.threshold.String())
	if err != nil {
		return DashboardSummary{}, err
	}
	var summary DashboardSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		out := DashboardSummary{Date: today.Format(dateLayout), ThresholdKg: s.threshold}
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			out.Counts, err = s.repo.Counts(gctx)
			return err
		})
		g.Go(func() (err error) {
			out.TodaySales, err = s.repo.SalesTotals(gctx, today, today.AddDate(0, 0, 1))
			return err
		})
		g.Go(func() (err error) {
			out.OutstandingDebt, err = s.repo.DebtTotals(gctx)
			return err
		})
		g.Go(func() (err error) {
			out.MonthExpenses, err = s.repo.ExpenseTotals(gctx, monthStart, monthStart.AddDate(0, 1, 0))
			return err
		})
		g.Go(func() error {
			items, err := s.repo.Inventory(gctx)
			for _, it := range items {
				if it.QuantityKg.LessThan(s.threshold) {
					out.LowStockCount++
				}
			}
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
	return summary, err
}

// Charts returns monthly sales per currency and monthly purchased kilograms
// for the last months calendar months, current month included. Months without
// activity are reported as zero so every series has one point per month.
func (s *Service) Charts(ctx context.Context, months int) (DashboardCharts, error) {
	if months == 0 {
		months = defaultMonths
	}
	if months < 1 || months > maxMonths {
		return DashboardCharts{}, shared.Invalid(fmt.Sprintf("months must be between 1 and %d", maxMonths))
	}
	now := s.now()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	start := end.AddDate(0, -months, 0)

	key, err := s.cache.BuildKey(ctx, "charts", start.Format(monthLayout), strconv.Itoa(months))
	if err != nil {
		return DashboardCharts{}, err
	}
	var charts DashboardCharts
	err = s.cache.FetchJSON(ctx, key, &charts, func(ctx context.Context) (any, error) {
		var sales []MonthlySales
		var kg []MonthlyKg
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			sales, err = s.repo.MonthlySales(gctx, start, end)
			return err
		})
		g.Go(func() (err error) {
			kg, err = s.repo.MonthlyPurchasedKg(gctx, start, end)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return fillMonths(start, months, sales, kg), nil
	})
	return charts, err
}

func fillMonths(start time.Time, months int, sales []MonthlySales, kg []MonthlyKg) DashboardCharts {
	type saleKey struct {
		month    string
		currency money.Currency
	}
	soldBy := make(map[saleKey]decimal.Decimal, len(sales))
	for _, m := range sales {
		soldBy[saleKey{m.Month, m.Currency}] = m.Value
	}
	kgBy := make(map[string]decimal.Decimal, len(kg))
	for _, m := range kg {
		kgBy[m.Month] = m.Value
	}
	out := DashboardCharts{
		Months:          months,
		SalesChart:      make([]MonthlySales, 0, months*len(money.Currencies)),
		ProductionChart: make([]MonthlyKg, 0, months),
	}
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0).Format(monthLayout)
		for _, c := range money.Currencies {
			v, ok := soldBy[saleKey{month, c}]
			if !ok {
				v = decimal.Zero
			}
			out.SalesChart = append(out.SalesChart, MonthlySales{Month: month, Currency: c, Value: v})
		}
		v, ok := kgBy[month]
		if !ok {
			v = decimal.Zero
		}
		out.ProductionChart = append(out.ProductionChart, MonthlyKg{Month: month, Value: v})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
