package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/feedmill/feedmill/internal/client"
	"github.com/feedmill/feedmill/internal/customers"
	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/invoices"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

// ErrSubmitInFlight is returned when a submission is already running.
var ErrSubmitInFlight = errors.New("a submission is already in progress")

// Snapshot is the last loaded view of the backend.
type Snapshot struct {
	Customers []customers.Customer
	Feeds     []feeds.Feed
	Invoices  invoices.ListResponse
}

// Invoices composes the backend facades into the invoice workflow.
type Invoices struct {
	backend Backend
	logger  *slog.Logger
	query   client.InvoiceQuery
	newKey  func() string

	mu       sync.RWMutex
	snapshot Snapshot

	submitting sync.Mutex
}

// NewInvoices builds the workflow. Call Reload before composing drafts.
func NewInvoices(backend Backend, logger *slog.Logger) *Invoices {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoices{backend: backend, logger: logger, newKey: uuid.NewString}
}

// SetQuery changes the invoice listing kept in the snapshot.
func (w *Invoices) SetQuery(q client.InvoiceQuery) {
	w.mu.Lock()
	w.query = q
	w.mu.Unlock()
}

// Snapshot returns the last loaded state.
func (w *Invoices) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Reload fetches customers, feeds with prices and the invoice list concurrently.
func (w *Invoices) Reload(ctx context.Context) error {
	w.mu.RLock()
	query := w.query
	w.mu.RUnlock()

	var next Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := w.backend.Customers.All(gctx)
		next.Customers = list
		return err
	})
	g.Go(func() error {
		list, err := w.backend.Feeds.All(gctx)
		next.Feeds = list
		return err
	})
	g.Go(func() error {
		list, err := w.backend.Invoices.List(gctx, query)
		next.Invoices = list
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	w.mu.Lock()
	w.snapshot = next
	w.mu.Unlock()
	return nil
}

func (w *Invoices) catalog() map[int64]feeds.Feed {
	snap := w.Snapshot()
	out := make(map[int64]feeds.Feed, len(snap.Feeds))
	for _, f := range snap.Feeds {
		if !f.Deleted() {
			out[f.ID] = f
		}
	}
	return out
}

func (w *Invoices) customerExists(id int64) bool {
	for _, c := range w.Snapshot().Customers {
		if c.ID == id {
			return true
		}
	}
	return false
}

// NewDraft starts an invoice with one empty line, retail prices in SYP.
func (w *Invoices) NewDraft() *Draft {
	return newDraft(w.catalog())
}

// EditDraft loads an invoice for editing. Lines keep the unit prices captured
// at sale time and may draw on current stock plus what the invoice holds.
func (w *Invoices) EditDraft(ctx context.Context, id int64) (*Draft, error) {
	inv, err := w.backend.Invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	catalog := w.catalog()
	d := &Draft{
		Draft: invoices.Draft{
			CustomerID:     inv.CustomerID,
			IsWalkIn:       inv.IsWalkIn,
			Currency:       inv.Currency,
			PriceType:      money.Retail,
			InitialPayment: decimal.Zero,
		},
		EditingID: inv.ID,
		feeds:     catalog,
		held:      inv.Lines,
		paid:      inv.TotalPaid,
	}
	if inv.IsWalkIn {
		d.InitialPayment = inv.TotalPaid
	}
	if len(inv.Lines) > 0 {
		d.PriceType = inv.Lines[0].PriceType
	}
	for _, l := range inv.Lines {
		stock := decimal.Zero
		if f, ok := catalog[l.FeedID]; ok {
			stock = f.QuantityKg
		}
		d.Lines = append(d.Lines, invoices.DraftLine{
			FeedID:      l.FeedID,
			FeedName:    l.FeedName,
			AvailableKg: invoices.AvailableForEdit(stock, l.FeedID, inv.Lines),
			QuantityKg:  l.QuantityKg,
			PriceType:   l.PriceType,
			UnitPrice:   l.UnitPrice,
		})
	}
	if len(d.Lines) == 0 {
		d.AddLine()
	}
	return d, nil
}

// Submit checks the draft locally, then creates or updates the invoice and
// reloads the snapshot. Local rejections never reach the network. Backend
// rejections are returned unchanged and the snapshot is reloaded so the
// next attempt sees current stock.
func (w *Invoices) Submit(ctx context.Context, d *Draft) (invoices.Invoice, error) {
	if err := d.Check(w.customerExists); err != nil {
		return invoices.Invoice{}, err
	}
	if !w.submitting.TryLock() {
		return invoices.Invoice{}, ErrSubmitInFlight
	}
	defer w.submitting.Unlock()

	var (
		inv invoices.Invoice
		err error
	)
	if d.Editing() {
		inv, err = w.backend.Invoices.Update(ctx, d.EditingID, invoices.UpdateRequest{Items: d.items()})
	} else {
		inv, err = w.backend.Invoices.Create(ctx, invoices.CreateRequest{
			CustomerID:     d.CustomerID,
			IsWalkIn:       d.IsWalkIn,
			Currency:       string(d.Currency),
			InitialPayment: d.InitialPayment,
			PaymentMethod:  d.PaymentMethod,
			Items:          d.items(),
		}, w.newKey())
	}
	if reloadErr := w.Reload(ctx); reloadErr != nil {
		w.logger.Warn("reload after submit failed", slog.Any("error", reloadErr))
	}
	if err != nil {
		return invoices.Invoice{}, err
	}
	return inv, nil
}

// RecordPayment pays toward one invoice. The amount must be positive and
// not above the remaining balance. The invoice is fetched again afterwards,
// whether the payment succeeded or not.
func (w *Invoices) RecordPayment(ctx context.Context, inv invoices.Invoice, amount decimal.Decimal, method, notes string) (invoices.Invoice, error) {
	balance := invoices.Balance{TotalAmount: inv.TotalAmount, TotalPaid: inv.TotalPaid, Remaining: inv.Remaining}
	if err := invoices.CheckPayment(balance, amount); err != nil {
		return inv, err
	}
	id := inv.ID
	_, payErr := w.backend.Payments.Pay(ctx, invoices.PaymentRequest{
		InvoiceID:     &id,
		Amount:        amount,
		Currency:      string(inv.Currency),
		PaymentMethod: method,
		Notes:         notes,
	}, w.newKey())

	fresh, err := w.backend.Invoices.Get(ctx, id)
	if err != nil {
		w.logger.Warn("reload invoice after payment failed", slog.Int64("invoice_id", id), slog.Any("error", err))
		fresh = inv
	}
	if payErr != nil {
		return fresh, payErr
	}
	if reloadErr := w.Reload(ctx); reloadErr != nil {
		w.logger.Warn("reload after payment failed", slog.Any("error", reloadErr))
	}
	return fresh, nil
}

// PayCustomerDebt spreads amount over the customer's open invoices in the
// given currency, oldest first.
func (w *Invoices) PayCustomerDebt(ctx context.Context, customerID int64, currency money.Currency, amount decimal.Decimal, method, notes string) (invoices.PaymentResult, error) {
	if !currency.Valid() {
		return invoices.PaymentResult{}, shared.Invalid(fmt.Sprintf("unsupported currency %q", currency))
	}
	detail, err := w.backend.Payments.Customer(ctx, customerID)
	if err != nil {
		return invoices.PaymentResult{}, err
	}
	var open []invoices.Summary
	for _, s := range detail.OpenInvoices {
		if s.Currency == currency {
			open = append(open, s)
		}
	}
	if _, err := invoices.AllocateOldestFirst(open, amount); err != nil {
		return invoices.PaymentResult{}, err
	}
	res, err := w.backend.Payments.Pay(ctx, invoices.PaymentRequest{
		CustomerID:    &customerID,
		Amount:        amount,
		Currency:      string(currency),
		PaymentMethod: method,
		Notes:         notes,
	}, w.newKey())
	if reloadErr := w.Reload(ctx); reloadErr != nil {
		w.logger.Warn("reload after debt payment failed", slog.Any("error", reloadErr))
	}
	return res, err
}
