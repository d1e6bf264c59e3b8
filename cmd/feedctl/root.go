package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/feedmill/feedmill/internal/client"
	"github.com/feedmill/feedmill/internal/client/config"
	"github.com/feedmill/feedmill/internal/client/session"
	"github.com/feedmill/feedmill/internal/client/settings"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/workflow"
)

var version = "dev"

// env is shared by every command once the root pre-run has loaded it.
type env struct {
	out      io.Writer
	logger   *slog.Logger
	cfg      *config.Config
	session  *session.Store
	settings *settings.Store
	api      *client.Client
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	e := &env{out: stdout}
	var verbose bool

	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Operator console for the feed mill backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			e.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			return e.load()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests and reloads")

	root.AddCommand(
		loginCmd(e), logoutCmd(e), whoamiCmd(e),
		settingsCmd(e),
		feedsCmd(e), pricesCmd(e), customersCmd(e), purchasesCmd(e),
		invoicesCmd(e), debtsCmd(e), expensesCmd(e),
		reportsCmd(e), adminCmd(e),
	)
	return root
}

func (e *env) load() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.session = session.NewStore(cfg.SessionPath())
	if err := e.session.Load(); err != nil {
		return err
	}
	e.settings = settings.NewStore(cfg.SettingsPath())
	if err := e.settings.Load(); err != nil {
		return err
	}
	e.api = client.New(cfg.APIURL, e.session,
		client.WithTimeout(cfg.Timeout),
		client.WithUserAgent("feedctl/"+version))
	e.logger.Debug("console ready", slog.String("api", cfg.APIURL), slog.Bool("logged_in", e.session.Authenticated()))
	return nil
}

// authed wraps a RunE so it refuses to run without a stored login and drops
// the session when the backend rejects the token.
func (e *env) authed(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if !e.session.Authenticated() {
			return session.ErrNotAuthenticated
		}
		err := run(cmd, args)
		if client.IsUnauthorized(err) {
			_ = e.session.Logout()
			return fmt.Errorf("%w (session cleared, log in again)", err)
		}
		return err
	}
}

func (e *env) workflow() *workflow.Invoices {
	return workflow.NewInvoices(workflow.FromClient(e.api), e.logger)
}

func (e *env) table() *tabwriter.Writer {
	return tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
}

func (e *env) amount(d decimal.Decimal, c money.Currency) string {
	return e.settings.Format(d, c)
}

// lookup names the record the user asked for when the backend has no such row.
func lookup(err error, what string, id int64) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("%s %d does not exist", what, id)
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseDecimal(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, s)
	}
	return d, nil
}
