package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feedmill/feedmill/internal/client"
	"github.com/feedmill/feedmill/internal/customers"
	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/purchases"
)

func pageFlags(cmd *cobra.Command, p *client.Page) {
	cmd.Flags().IntVar(&p.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&p.Limit, "limit", 20, "rows per page")
}

func feedsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "feeds", Short: "Manage feed materials"}

	var page client.Page
	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List active feeds with stock",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			res, err := e.api.Feeds().List(cmd.Context(), page, search)
			if err != nil {
				return err
			}
			threshold := e.settings.Get().MinStockAlert
			tw := e.table()
			fmt.Fprintln(tw, "ID\tNAME\tSTOCK\t")
			for _, f := range res.Feeds {
				flag := ""
				if f.QuantityKg.LessThan(threshold) {
					flag = "low"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.ID, f.Name, e.settings.FormatKg(f.QuantityKg), flag)
			}
			fmt.Fprintf(tw, "\npage %d of %d (%d feeds)\n", res.Pagination.Page, res.Pagination.TotalPages, res.Pagination.Total)
			return tw.Flush()
		}),
	}
	pageFlags(list, &page)
	list.Flags().StringVar(&search, "search", "", "filter by name")

	var qty string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a feed with an opening stock",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			kg, err := parseDecimal("quantity", qty)
			if err != nil {
				return err
			}
			f, err := e.api.Feeds().Create(cmd.Context(), feeds.CreateFeedRequest{Name: args[0], QuantityKg: kg})
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "created feed %d (%s)\n", f.ID, f.Name)
			return nil
		}),
	}
	add.Flags().StringVar(&qty, "kg", "0", "opening stock in kg")

	rename := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a feed",
		Args:  cobra.ExactArgs(2),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := e.api.Feeds().Rename(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "feed %d is now %s\n", f.ID, f.Name)
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Retire a feed (history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.api.Feeds().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "feed %d deleted\n", id)
			return nil
		}),
	}

	cmd.AddCommand(list, add, rename, remove)
	return cmd
}

func pricesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "prices", Short: "Show or replace a feed's prices"}

	show := &cobra.Command{
		Use:   "show FEED_ID",
		Short: "Print the price grid of a feed",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			prices, err := e.api.Feeds().Prices(cmd.Context(), id)
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintln(tw, "TYPE\tCURRENCY\tPER KG")
			for _, p := range prices {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.PriceType, p.Currency, e.amount(p.PricePerKg, p.Currency))
			}
			return tw.Flush()
		}),
	}

	var entries []string
	set := &cobra.Command{
		Use:     "set FEED_ID",
		Short:   "Replace the full price set of a feed",
		Example: `  feedctl prices set 3 --price retail:SYP:5200 --price wholesale:SYP:4800`,
		Args:    cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			prices := make([]money.Price, 0, len(entries))
			for _, raw := range entries {
				p, err := parsePrice(raw)
				if err != nil {
					return err
				}
				prices = append(prices, p)
			}
			saved, err := e.api.Feeds().ReplacePrices(cmd.Context(), id, prices)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "feed %d now has %d prices\n", id, len(saved))
			return nil
		}),
	}
	set.Flags().StringArrayVar(&entries, "price", nil, "TYPE:CURRENCY:PER_KG, repeatable")

	cmd.AddCommand(show, set)
	return cmd
}

func parsePrice(raw string) (money.Price, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return money.Price{}, fmt.Errorf("price %q must look like retail:SYP:5000", raw)
	}
	pt, err := money.ParsePriceType(parts[0])
	if err != nil {
		return money.Price{}, err
	}
	cur, err := money.ParseCurrency(parts[1])
	if err != nil {
		return money.Price{}, err
	}
	amount, err := parseDecimal("price", parts[2])
	if err != nil {
		return money.Price{}, err
	}
	return money.Price{PriceType: pt, Currency: cur, PricePerKg: amount}, nil
}

func customersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "customers", Short: "Manage customers"}

	var page client.Page
	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			res, err := e.api.Customers().List(cmd.Context(), page, search)
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tADDRESS")
			for _, c := range res.Customers {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.FullName, c.Phone, c.Address)
			}
			return tw.Flush()
		}),
	}
	pageFlags(list, &page)
	list.Flags().StringVar(&search, "search", "", "filter by name or phone")

	var phone, address string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a customer",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			c, err := e.api.Customers().Create(cmd.Context(), customers.CreateCustomerRequest{
				FullName: args[0], Phone: phone, Address: address,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "created customer %d (%s)\n", c.ID, c.FullName)
			return nil
		}),
	}
	add.Flags().StringVar(&phone, "phone", "", "phone number")
	add.Flags().StringVar(&address, "address", "", "address")

	var newName, newPhone, newAddress string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change a customer's details",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req customers.UpdateCustomerRequest
			if cmd.Flags().Changed("name") {
				req.FullName = &newName
			}
			if cmd.Flags().Changed("phone") {
				req.Phone = &newPhone
			}
			if cmd.Flags().Changed("address") {
				req.Address = &newAddress
			}
			c, err := e.api.Customers().Update(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "updated customer %d (%s)\n", c.ID, c.FullName)
			return nil
		}),
	}
	update.Flags().StringVar(&newName, "name", "", "full name")
	update.Flags().StringVar(&newPhone, "phone", "", "phone number")
	update.Flags().StringVar(&newAddress, "address", "", "address")

	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a customer without invoices",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.api.Customers().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "customer %d deleted\n", id)
			return nil
		}),
	}

	cmd.AddCommand(list, add, update, remove)
	return cmd
}

func purchasesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "purchases", Short: "Record and list stock purchases"}

	var page client.Page
	var feedID int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List purchases, newest first",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			res, err := e.api.Purchases().List(cmd.Context(), page, feedID)
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintln(tw, "ID\tDATE\tFEED\tQTY\tPER KG\tTOTAL\tSUPPLIER")
			for _, p := range res.Purchases {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.CreatedAt.Format("2006-01-02"), p.FeedName,
					e.settings.FormatKg(p.QuantityKg), e.amount(p.PricePerKg, p.Currency), e.amount(p.TotalCost, p.Currency), p.Supplier)
			}
			return tw.Flush()
		}),
	}
	pageFlags(list, &page)
	list.Flags().Int64Var(&feedID, "feed", 0, "only purchases of this feed")

	var req purchases.CreateRequest
	var qty, price string
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a purchase and add it to stock",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.QuantityKg, err = parseDecimal("quantity", qty); err != nil {
				return err
			}
			if req.PricePerKg, err = parseDecimal("price", price); err != nil {
				return err
			}
			p, err := e.api.Purchases().Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "recorded purchase %d: %s of %s for %s\n", p.ID,
				e.settings.FormatKg(p.QuantityKg), p.FeedName, e.amount(p.TotalCost, p.Currency))
			return nil
		}),
	}
	add.Flags().Int64Var(&req.FeedID, "feed", 0, "feed id")
	add.Flags().StringVar(&qty, "kg", "", "quantity in kg")
	add.Flags().StringVar(&price, "price", "", "price per kg")
	add.Flags().StringVar(&req.Currency, "currency", "SYP", "SYP or USD")
	add.Flags().StringVar(&req.Supplier, "supplier", "", "supplier name")
	add.Flags().StringVar(&req.Notes, "notes", "", "notes")
	_ = add.MarkFlagRequired("feed")
	_ = add.MarkFlagRequired("kg")
	_ = add.MarkFlagRequired("price")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Totals over all purchases",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			s, err := e.api.Purchases().Stats(cmd.Context())
			if err != nil {
				return err
			}
			tw := e.table()
			fmt.Fprintf(tw, "purchases\t%d\n", s.TotalPurchases)
			fmt.Fprintf(tw, "quantity\t%s\n", e.settings.FormatKg(s.TotalQuantity))
			for _, cur := range money.Currencies {
				if spent, ok := s.TotalSpent[cur]; ok {
					fmt.Fprintf(tw, "spent %s\t%s\n", cur, e.amount(spent, cur))
				}
			}
			return tw.Flush()
		}),
	}

	cmd.AddCommand(list, add, stats)
	return cmd
}
