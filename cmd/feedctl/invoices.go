package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/feedmill/feedmill/internal/client"
	"github.com/feedmill/feedmill/internal/invoices"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/workflow"
)

func invoicesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "invoices", Short: "Compose, edit and pay invoices"}
	cmd.AddCommand(invoiceListCmd(e), invoiceShowCmd(e), invoiceCreateCmd(e), invoiceEditCmd(e), invoicePayCmd(e))
	return cmd
}

func invoiceListCmd(e *env) *cobra.Command {
	var q client.InvoiceQuery
	var from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, newest first",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			var err error
			if q.From, err = parseDate(from); err != nil {
				return err
			}
			if q.To, err = parseDate(to); err != nil {
				return err
			}
			wf := e.workflow()
			wf.SetQuery(q)
			if err := wf.Reload(cmd.Context()); err != nil {
				return err
			}
			res := wf.Snapshot().Invoices
			tw := e.table()
			fmt.Fprintln(tw, "ID\tDATE\tCUSTOMER\tTOTAL\tPAID\tREMAINING")
			for _, s := range res.Invoices {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.CreatedAt.Format("2006-01-02"), customerLabel(s.CustomerName, s.IsWalkIn),
					e.amount(s.TotalAmount, s.Currency), e.amount(s.TotalPaid, s.Currency), e.amount(s.Remaining, s.Currency))
			}
			fmt.Fprintf(tw, "\npage %d of %d (%d invoices)\n", res.Pagination.Page, res.Pagination.TotalPages, res.Pagination.Total)
			return tw.Flush()
		}),
	}
	pageFlags(cmd, &q.Page)
	cmd.Flags().Int64Var(&q.CustomerID, "customer", 0, "only this customer's invoices")
	cmd.Flags().StringVar(&from, "from", "", "from date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "to date YYYY-MM-DD")
	cmd.Flags().BoolVar(&q.OpenOnly, "open", false, "only invoices with a remaining balance")
	return cmd
}

func invoiceShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print an invoice with its lines and payments",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			inv, err := e.api.Invoices().Get(cmd.Context(), id)
			if err != nil {
				return lookup(err, "invoice", id)
			}
			e.printInvoice(inv)
			return nil
		}),
	}
}

func (e *env) printInvoice(inv invoices.Invoice) {
	st := e.settings.Get()
	fmt.Fprintf(e.out, "%s %s\n", st.FactoryName, st.Phone)
	fmt.Fprintf(e.out, "invoice #%d  %s  %s\n\n", inv.ID, inv.CreatedAt.Format("2006-01-02 15:04"),
		customerLabel(inv.CustomerName, inv.IsWalkIn))
	tw := e.table()
	fmt.Fprintln(tw, "#\tFEED\tQTY\tTYPE\tPER KG\tTOTAL")
	for i, l := range inv.Lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, l.FeedName, e.settings.FormatKg(l.QuantityKg), l.PriceType,
			e.amount(l.UnitPrice, inv.Currency), e.amount(l.LineTotal, inv.Currency))
	}
	fmt.Fprintf(tw, "\ntotal\t%s\n", e.amount(inv.TotalAmount, inv.Currency))
	fmt.Fprintf(tw, "paid\t%s\n", e.amount(inv.TotalPaid, inv.Currency))
	fmt.Fprintf(tw, "remaining\t%s\n", e.amount(inv.Remaining, inv.Currency))
	if len(inv.Payments) > 0 {
		fmt.Fprintln(tw, "\nPAYMENT\tDATE\tAMOUNT\tMETHOD\tNOTES")
		for _, p := range inv.Payments {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.CreatedAt.Format("2006-01-02"), e.amount(p.Amount, p.Currency),
				p.PaymentMethod, p.Notes)
		}
	}
	_ = tw.Flush()
}

func customerLabel(name string, walkIn bool) string {
	if walkIn {
		return "walk-in"
	}
	return name
}

// lineSpec is FEED_ID:KG.
func parseLineSpec(raw string) (int64, string, error) {
	feed, kg, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, "", fmt.Errorf("line %q must look like FEED_ID:KG", raw)
	}
	id, err := strconv.ParseInt(feed, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("line %q has an invalid feed id", raw)
	}
	return id, kg, nil
}

// fillLines replaces the draft's lines with specs, pricing each one.
func fillLines(d *workflow.Draft, specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	for len(d.Lines) < len(specs) {
		d.AddLine()
	}
	for len(d.Lines) > len(specs) {
		if err := d.RemoveLine(len(d.Lines) - 1); err != nil {
			return err
		}
	}
	for i, raw := range specs {
		feedID, kgRaw, err := parseLineSpec(raw)
		if err != nil {
			return err
		}
		kg, err := parseDecimal("quantity", kgRaw)
		if err != nil {
			return err
		}
		if err := d.SelectFeed(i, feedID); err != nil {
			return err
		}
		if err := d.SetQuantity(i, kg); err != nil {
			return err
		}
	}
	return nil
}

func invoiceCreateCmd(e *env) *cobra.Command {
	var (
		customerID int64
		walkIn     bool
		currency   string
		priceType  string
		paid       string
		method     string
		lines      []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Compose and submit a new invoice",
		Example: `  feedctl invoices create --customer 4 --line 1:250 --line 3:100 --paid 500000
  feedctl invoices create --walk-in --type wholesale --line 2:50 --paid 225000`,
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			wf := e.workflow()
			if err := wf.Reload(cmd.Context()); err != nil {
				return err
			}
			d := wf.NewDraft()
			if walkIn {
				_ = d.SetWalkIn(true)
			} else if customerID > 0 {
				_ = d.SetCustomer(customerID)
			}
			cur, err := money.ParseCurrency(currency)
			if err != nil {
				return err
			}
			pt, err := money.ParsePriceType(priceType)
			if err != nil {
				return err
			}
			if err := d.SetCurrency(cur); err != nil {
				return err
			}
			if err := d.SetPriceType(pt); err != nil {
				return err
			}
			if err := fillLines(d, lines); err != nil {
				return err
			}
			amount, err := parseDecimal("payment", paid)
			if err != nil {
				return err
			}
			if walkIn && !cmd.Flags().Changed("paid") {
				amount = d.Total()
			}
			_ = d.SetInitialPayment(amount)
			d.PaymentMethod = method

			inv, err := wf.Submit(cmd.Context(), d)
			if err != nil {
				return err
			}
			e.printInvoice(inv)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&customerID, "customer", 0, "customer id")
	cmd.Flags().BoolVar(&walkIn, "walk-in", false, "walk-in sale, paid in full unless --paid is given")
	cmd.Flags().StringVar(&currency, "currency", "SYP", "SYP or USD")
	cmd.Flags().StringVar(&priceType, "type", "retail", "retail or wholesale")
	cmd.Flags().StringVar(&paid, "paid", "0", "initial payment")
	cmd.Flags().StringVar(&method, "method", "cash", "payment method")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "FEED_ID:KG, repeatable")
	return cmd
}

func invoiceEditCmd(e *env) *cobra.Command {
	var (
		priceType string
		lines     []string
	)
	cmd := &cobra.Command{
		Use:     "edit ID",
		Short:   "Replace the lines of an invoice",
		Example: `  feedctl invoices edit 12 --line 1:300`,
		Args:    cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return fmt.Errorf("at least one --line is required")
			}
			wf := e.workflow()
			if err := wf.Reload(cmd.Context()); err != nil {
				return err
			}
			d, err := wf.EditDraft(cmd.Context(), id)
			if err != nil {
				return lookup(err, "invoice", id)
			}
			if priceType != "" {
				pt, err := money.ParsePriceType(priceType)
				if err != nil {
					return err
				}
				if err := d.SetPriceType(pt); err != nil {
					return err
				}
			}
			if err := fillLines(d, lines); err != nil {
				return err
			}
			inv, err := wf.Submit(cmd.Context(), d)
			if client.IsConflict(err) {
				return fmt.Errorf("%w (invoice %d changed since it was loaded, run the edit again)", err, id)
			}
			if err != nil {
				return err
			}
			e.printInvoice(inv)
			return nil
		}),
	}
	cmd.Flags().StringVar(&priceType, "type", "", "switch every line to retail or wholesale")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "FEED_ID:KG, repeatable; replaces all lines")
	return cmd
}

func invoicePayCmd(e *env) *cobra.Command {
	var method, notes string
	cmd := &cobra.Command{
		Use:   "pay ID AMOUNT",
		Short: "Record a payment against an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseDecimal("amount", args[1])
			if err != nil {
				return err
			}
			inv, err := e.api.Invoices().Get(cmd.Context(), id)
			if err != nil {
				return lookup(err, "invoice", id)
			}
			wf := e.workflow()
			fresh, err := wf.RecordPayment(cmd.Context(), inv, amount, method, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "payment recorded, remaining %s\n", e.amount(fresh.Remaining, fresh.Currency))
			return nil
		}),
	}
	cmd.Flags().StringVar(&method, "method", "cash", "payment method")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return t, nil
}
