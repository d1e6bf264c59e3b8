package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedmill/feedmill/internal/client"
	"github.com/feedmill/feedmill/internal/expenses"
	"github.com/feedmill/feedmill/internal/money"
)

func debtsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "debts", Short: "Customer balances and debt payments"}

	list := &cobra.Command{
		Use:   "list",
		Short: "Customers with a remaining balance",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			rows, err := e.api.Debts().List(cmd.Context())
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintln(tw, "CUSTOMER\tNAME\tPHONE\tINVOICES\tTOTAL\tPAID\tREMAINING")
			for _, d := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n", d.CustomerID, d.CustomerName, d.Phone, d.OpenInvoices,
					e.amount(d.TotalAmount, d.Currency), e.amount(d.TotalPaid, d.Currency), e.amount(d.Remaining, d.Currency))
			}
			return tw.Flush()
		}),
	}

	show := &cobra.Command{
		Use:   "show CUSTOMER_ID",
		Short: "Open invoices and payment history of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			detail, err := e.api.Debts().Customer(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s %s\n\n", detail.CustomerName, detail.Phone)
			tw := e.table()
			for _, d := range detail.Debts {
				fmt.Fprintf(tw, "owed %s\t%s\n", d.Currency, e.amount(d.Remaining, d.Currency))
			}
			fmt.Fprintln(tw, "\nINVOICE\tDATE\tTOTAL\tREMAINING")
			for _, s := range detail.OpenInvoices {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.CreatedAt.Format("2006-01-02"),
					e.amount(s.TotalAmount, s.Currency), e.amount(s.Remaining, s.Currency))
			}
			fmt.Fprintln(tw, "\nPAYMENT\tINVOICE\tDATE\tAMOUNT\tMETHOD")
			for _, p := range detail.Payments {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", p.ID, p.InvoiceID, p.CreatedAt.Format("2006-01-02"),
					e.amount(p.Amount, p.Currency), p.PaymentMethod)
			}
			return tw.Flush()
		}),
	}

	var currency, method, notes string
	pay := &cobra.Command{
		Use:   "pay CUSTOMER_ID AMOUNT",
		Short: "Pay down a customer's open invoices, oldest first",
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
			cur, err := money.ParseCurrency(currency)
			if err != nil {
				return err
			}
			wf := e.workflow()
			res, err := wf.PayCustomerDebt(cmd.Context(), id, cur, amount, method, notes)
			if err != nil {
				return err
			}
			for _, p := range res.Payments {
				fmt.Fprintf(e.out, "invoice %d: %s\n", p.InvoiceID, e.amount(p.Amount, p.Currency))
			}
			fmt.Fprintf(e.out, "total paid %s\n", e.amount(res.Total, cur))
			return nil
		}),
	}
	pay.Flags().StringVar(&currency, "currency", "SYP", "currency of the debt being paid")
	pay.Flags().StringVar(&method, "method", "cash", "payment method")
	pay.Flags().StringVar(&notes, "notes", "", "notes")

	cmd.AddCommand(list, show, pay)
	return cmd
}

func expensesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "expenses", Short: "Vehicle and worker expenses"}

	var q client.ExpenseQuery
	var kind, from, to string
	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			var err error
			q.Type = expenses.Type(kind)
			if q.From, err = parseDate(from); err != nil {
				return err
			}
			if q.To, err = parseDate(to); err != nil {
				return err
			}
			res, err := e.api.Expenses().List(cmd.Context(), q)
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tDESCRIPTION")
			for _, x := range res.Expenses {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", x.ID, x.Date.Format("2006-01-02"), x.Type,
					e.amount(x.Amount, x.Currency), x.Description)
			}
			return tw.Flush()
		}),
	}
	pageFlags(list, &q.Page)
	list.Flags().StringVar(&kind, "type", "", "vehicle or worker")
	list.Flags().StringVar(&from, "from", "", "from date YYYY-MM-DD")
	list.Flags().StringVar(&to, "to", "", "to date YYYY-MM-DD")

	var in expenses.Input
	var amount string
	inputFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&in.Type, "type", "", "vehicle or worker")
		c.Flags().StringVar(&in.Date, "date", "", "expense date YYYY-MM-DD")
		c.Flags().StringVar(&in.Description, "description", "", "what was paid for")
		c.Flags().StringVar(&amount, "amount", "", "amount")
		c.Flags().StringVar(&in.Currency, "currency", "SYP", "SYP or USD")
		_ = c.MarkFlagRequired("type")
		_ = c.MarkFlagRequired("date")
		_ = c.MarkFlagRequired("amount")
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.Amount, err = parseDecimal("amount", amount); err != nil {
				return err
			}
			x, err := e.api.Expenses().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "recorded expense %d\n", x.ID)
			return nil
		}),
	}
	inputFlags(add)

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Replace an expense",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if in.Amount, err = parseDecimal("amount", amount); err != nil {
				return err
			}
			x, err := e.api.Expenses().Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "updated expense %d\n", x.ID)
			return nil
		}),
	}
	inputFlags(update)

	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.api.Expenses().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "expense %d deleted\n", id)
			return nil
		}),
	}

	cmd.AddCommand(list, add, update, remove)
	return cmd
}
