package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/feedmill/feedmill/internal/money"
)

func reportsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "reports", Short: "Sales, inventory and debt reports"}

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Today's figures at a glance",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			d, err := e.api.Reports().Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintf(tw, "date\t%s\n", d.Date)
			fmt.Fprintf(tw, "feeds / customers / invoices\t%d / %d / %d\n", d.Counts.Feeds, d.Counts.Customers, d.Counts.Invoices)
			for _, s := range d.TodaySales {
				fmt.Fprintf(tw, "sales today %s\t%s (%d invoices)\n", s.Currency, e.amount(s.Sales, s.Currency), s.Invoices)
			}
			for _, debt := range d.OutstandingDebt {
				line := e.amount(debt.Remaining, debt.Currency)
				if debt.Currency == money.SYP {
					line += "  ≈ " + e.settings.FormatCurrency(debt.Remaining)
				}
				fmt.Fprintf(tw, "outstanding %s\t%s\n", debt.Currency, line)
			}
			for _, x := range d.MonthExpenses {
				fmt.Fprintf(tw, "expenses %s %s\t%s\n", x.Type, x.Currency, e.amount(x.Amount, x.Currency))
			}
			fmt.Fprintf(tw, "low-stock feeds\t%d (below %s)\n", d.LowStockCount, e.settings.FormatKg(d.ThresholdKg))
			return tw.Flush()
		}),
	}

	var start, end string
	sales := &cobra.Command{
		Use:   "sales",
		Short: "Sales by currency and by feed",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			from, err := parseDate(start)
			if err != nil {
				return err
			}
			to, err := parseDate(end)
			if err != nil {
				return err
			}
			r, err := e.api.Reports().Sales(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "sales %s .. %s, %d invoices\n\n", r.Start, r.End, r.InvoiceCount)
			tw := e.table()
			fmt.Fprintln(tw, "CURRENCY\tINVOICES\tSALES\tPAID\tREMAINING")
			for _, t := range r.Totals {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", t.Currency, t.Invoices,
					e.amount(t.Sales, t.Currency), e.amount(t.Paid, t.Currency), e.amount(t.Remaining, t.Currency))
			}
			fmt.Fprintln(tw, "\nFEED\tCURRENCY\tQTY\tAMOUNT")
			for _, f := range r.Feeds {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.FeedName, f.Currency, e.settings.FormatKg(f.QuantityKg), e.amount(f.Amount, f.Currency))
			}
			return tw.Flush()
		}),
	}
	sales.Flags().StringVar(&start, "start", "", "first day YYYY-MM-DD (default: start of month)")
	sales.Flags().StringVar(&end, "end", "", "last day YYYY-MM-DD (default: today)")

	var threshold string
	inventory := &cobra.Command{
		Use:   "inventory",
		Short: "Stock levels and prices",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			limit := e.settings.Get().MinStockAlert
			if threshold != "" {
				var err error
				if limit, err = parseDecimal("threshold", threshold); err != nil {
					return err
				}
			}
			r, err := e.api.Reports().Inventory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintln(tw, "ID\tFEED\tSTOCK\tRETAIL SYP\tWHOLESALE SYP\t")
			for _, it := range r.Items {
				flag := ""
				if it.LowStock {
					flag = "low"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", it.ID, it.Name, e.settings.FormatKg(it.QuantityKg),
					e.priceCell(it.Retail[money.SYP]), e.priceCell(it.Wholesale[money.SYP]), flag)
			}
			fmt.Fprintf(tw, "\ntotal stock\t%s\n", e.settings.FormatKg(r.TotalKg))
			fmt.Fprintf(tw, "below %s\t%d feeds\n", e.settings.FormatKg(r.ThresholdKg), r.LowStockCount)
			return tw.Flush()
		}),
	}
	inventory.Flags().StringVar(&threshold, "threshold", "", "low-stock threshold in kg (default: settings)")

	debts := &cobra.Command{
		Use:   "debts",
		Short: "Outstanding balances by currency and customer",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			r, err := e.api.Reports().Debts(cmd.Context())
			if err != nil {
				return err
			}
			tw := e.table()
			for _, t := range r.Totals {
				fmt.Fprintf(tw, "%s\t%s (%d customers, %d invoices)\n", t.Currency, e.amount(t.Remaining, t.Currency), t.Customers, t.Invoices)
			}
			fmt.Fprintln(tw, "\nCUSTOMER\tNAME\tREMAINING")
			for _, row := range r.Customers {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", row.CustomerID, row.CustomerName, e.amount(row.Remaining, row.Currency))
			}
			return tw.Flush()
		}),
	}

	var months int
	charts := &cobra.Command{
		Use:   "charts",
		Short: "Monthly sales and purchased kilograms",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			c, err := e.api.Reports().Charts(cmd.Context(), months)
			if err != nil {
				return err
			}
			sold := map[string]map[money.Currency]decimal.Decimal{}
			for _, p := range c.SalesChart {
				if sold[p.Month] == nil {
					sold[p.Month] = map[money.Currency]decimal.Decimal{}
				}
				sold[p.Month][p.Currency] = p.Value
			}
			tw := e.table()
			fmt.Fprintln(tw, "MONTH\tSALES SYP\tSALES USD\tPURCHASED")
			for _, p := range c.ProductionChart {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Month, e.amount(sold[p.Month][money.SYP], money.SYP),
					e.amount(sold[p.Month][money.USD], money.USD), e.settings.FormatKg(p.Value))
			}
			return tw.Flush()
		}),
	}
	charts.Flags().IntVar(&months, "months", 0, "number of months, current included (default 6)")

	cmd.AddCommand(dashboard, charts, sales, inventory, debts)
	return cmd
}

func (e *env) priceCell(d decimal.Decimal) string {
	if !d.IsPositive() {
		return "-"
	}
	return e.amount(d, money.SYP)
}
