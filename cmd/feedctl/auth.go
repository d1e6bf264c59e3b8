package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feedmill/feedmill/internal/client/settings"
)

func loginCmd(e *env) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Example: `  feedctl login -u admin
  FEEDCTL_PASSWORD=secret feedctl login -u admin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("FEEDCTL_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(e.out, "password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required")
				}
				password = strings.TrimSpace(line)
			}
			res, err := e.api.Auth().Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err := e.session.Login(res); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "logged in as %s\n", res.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(*cobra.Command, []string) error {
			if err := e.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "logged out")
			return nil
		},
	}
}

func whoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the stored token",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			user, err := e.api.Auth().Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s (id %d)\n", user.Username, user.ID)
			return nil
		}),
	}
}

func settingsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Show or change display settings"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(*cobra.Command, []string) error {
			st := e.settings.Get()
			tw := e.table()
			fmt.Fprintf(tw, "factory name\t%s\n", st.FactoryName)
			fmt.Fprintf(tw, "phone\t%s\n", st.Phone)
			fmt.Fprintf(tw, "currency\t%s\n", st.Currency)
			fmt.Fprintf(tw, "exchange rate\t%s SYP/USD\n", st.ExchangeRate)
			fmt.Fprintf(tw, "low-stock alert\t%s\n", e.settings.FormatKg(st.MinStockAlert))
			return tw.Flush()
		},
	}

	var name, phone, currency, rate, threshold string
	set := &cobra.Command{
		Use:     "set",
		Short:   "Change one or more settings",
		Example: `  feedctl settings set --currency USD --rate 14500`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var p settings.Patch
			flags := cmd.Flags()
			if flags.Changed("name") {
				p.FactoryName = &name
			}
			if flags.Changed("phone") {
				p.Phone = &phone
			}
			if flags.Changed("currency") {
				p.Currency = &currency
			}
			if flags.Changed("rate") {
				d, err := parseDecimal("rate", rate)
				if err != nil {
					return err
				}
				p.ExchangeRate = &d
			}
			if flags.Changed("low-stock") {
				d, err := parseDecimal("low-stock", threshold)
				if err != nil {
					return err
				}
				p.MinStockAlert = &d
			}
			if _, err := e.settings.Update(p); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "settings saved")
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "factory name")
	set.Flags().StringVar(&phone, "phone", "", "factory phone")
	set.Flags().StringVar(&currency, "currency", "", "display currency (SYP or USD)")
	set.Flags().StringVar(&rate, "rate", "", "SYP per USD")
	set.Flags().StringVar(&threshold, "low-stock", "", "low-stock alert in kg")

	cmd.AddCommand(show, set)
	return cmd
}
