package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/feedmill/feedmill/internal/client"
	"github.com/feedmill/feedmill/internal/customers"
	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/invoices"
	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeBackend struct {
	mu        sync.Mutex
	feeds     []feeds.Feed
	customers []customers.Customer
	invoice   invoices.Invoice

	creates   []invoices.CreateRequest
	updates   []invoices.UpdateRequest
	payments  []invoices.PaymentRequest
	keys      []string
	lists     int
	gets      int
	createErr error
	payErr    error
	started   chan struct{}
	block     chan struct{}
	detail    invoices.CustomerDebtDetail
}

func (f *fakeBackend) All(context.Context) ([]feeds.Feed, error) { return f.feeds, nil }

type customerSource struct{ f *fakeBackend }

func (c customerSource) All(context.Context) ([]customers.Customer, error) { return c.f.customers, nil }

func (f *fakeBackend) List(context.Context, client.InvoiceQuery) (invoices.ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return invoices.ListResponse{}, nil
}

func (f *fakeBackend) Get(context.Context, int64) (invoices.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	return f.invoice, nil
}

func (f *fakeBackend) Create(_ context.Context, req invoices.CreateRequest, key string) (invoices.Invoice, error) {
	if f.block != nil {
		close(f.started)
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	f.keys = append(f.keys, key)
	if f.createErr != nil {
		return invoices.Invoice{}, f.createErr
	}
	return invoices.Invoice{ID: 10}, nil
}

func (f *fakeBackend) Update(_ context.Context, id int64, req invoices.UpdateRequest) (invoices.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, req)
	return invoices.Invoice{ID: id}, nil
}

func (f *fakeBackend) Pay(_ context.Context, req invoices.PaymentRequest, key string) (invoices.PaymentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, req)
	f.keys = append(f.keys, key)
	if f.payErr != nil {
		return invoices.PaymentResult{}, f.payErr
	}
	return invoices.PaymentResult{Total: req.Amount}, nil
}

func (f *fakeBackend) Customer(context.Context, int64) (invoices.CustomerDebtDetail, error) {
	return f.detail, nil
}

func newWorkflow(t *testing.T, f *fakeBackend) *Invoices {
	t.Helper()
	w := NewInvoices(Backend{Feeds: f, Customers: customerSource{f}, Invoices: f, Payments: f},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.Reload(context.Background()))
	return w
}

func sampleBackend() *fakeBackend {
	return &fakeBackend{
		feeds: []feeds.Feed{{
			ID:         1,
			Name:       "Starter",
			QuantityKg: dec("1000"),
			Prices: []money.Price{
				{PriceType: money.Retail, Currency: money.SYP, PricePerKg: dec("5000")},
				{PriceType: money.Wholesale, Currency: money.SYP, PricePerKg: dec("4500")},
				{PriceType: money.Retail, Currency: money.USD, PricePerKg: dec("0.4")},
			},
		}},
		customers: []customers.Customer{{ID: 3, FullName: "Abu Khaled"}},
	}
}

func TestDraftRepricesOnSwitch(t *testing.T) {
	w := newWorkflow(t, sampleBackend())
	d := w.NewDraft()
	require.NoError(t, d.SelectFeed(0, 1))
	require.True(t, d.Lines[0].UnitPrice.Equal(dec("5000")))
	require.True(t, d.Lines[0].AvailableKg.Equal(dec("1000")))

	require.NoError(t, d.SetPriceType(money.Wholesale))
	require.True(t, d.Lines[0].UnitPrice.Equal(dec("4500")))

	require.NoError(t, d.SetCurrency(money.USD))
	require.True(t, d.Lines[0].UnitPrice.IsZero())

	require.NoError(t, d.SetPriceType(money.Retail))
	require.True(t, d.Lines[0].UnitPrice.Equal(dec("0.4")))

	require.ErrorIs(t, d.RemoveLine(0), ErrLastLine)
	d.AddLine()
	require.NoError(t, d.RemoveLine(1))
	require.Len(t, d.Lines, 1)
}

func TestSubmitRejectsLocallyWithoutNetwork(t *testing.T) {
	f := sampleBackend()
	w := newWorkflow(t, f)
	d := w.NewDraft()
	require.NoError(t, d.SelectFeed(0, 1))
	require.NoError(t, d.SetQuantity(0, dec("1200")))
	require.NoError(t, d.SetCustomer(3))

	_, err := w.Submit(context.Background(), d)
	require.ErrorIs(t, err, invoices.ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, f.creates)

	require.NoError(t, d.SetCustomer(99))
	require.NoError(t, d.SetQuantity(0, dec("10")))
	_, err = w.Submit(context.Background(), d)
	require.ErrorIs(t, err, invoices.ErrCustomerRequired)
	require.Empty(t, f.creates)
}

func TestSubmitCreatesAndReloads(t *testing.T) {
	f := sampleBackend()
	w := newWorkflow(t, f)
	d := w.NewDraft()
	require.NoError(t, d.SetWalkIn(true))
	require.NoError(t, d.SelectFeed(0, 1))
	require.NoError(t, d.SetQuantity(0, dec("10")))
	require.NoError(t, d.SetInitialPayment(dec("50000")))

	inv, err := w.Submit(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, int64(10), inv.ID)
	require.Len(t, f.creates, 1)
	require.True(t, f.creates[0].IsWalkIn)
	require.Equal(t, "SYP", f.creates[0].Currency)
	require.True(t, f.creates[0].Items[0].UnitPrice.Equal(dec("5000")))
	require.NotEmpty(t, f.keys[0])
	require.Equal(t, 2, f.lists)
}

func TestSubmitSurfacesBackendMessageAndReloads(t *testing.T) {
	f := sampleBackend()
	f.createErr = &client.APIError{Status: 409, Message: "insufficient stock for Starter"}
	w := newWorkflow(t, f)
	d := w.NewDraft()
	require.NoError(t, d.SetCustomer(3))
	require.NoError(t, d.SelectFeed(0, 1))
	require.NoError(t, d.SetQuantity(0, dec("10")))

	_, err := w.Submit(context.Background(), d)
	require.EqualError(t, err, "insufficient stock for Starter")
	require.Equal(t, 2, f.lists)
}

func TestSubmitRefusesConcurrentSubmission(t *testing.T) {
	f := sampleBackend()
	f.started = make(chan struct{})
	f.block = make(chan struct{})
	w := newWorkflow(t, f)
	d := w.NewDraft()
	require.NoError(t, d.SetCustomer(3))
	require.NoError(t, d.SelectFeed(0, 1))
	require.NoError(t, d.SetQuantity(0, dec("10")))

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background(), d)
		done <- err
	}()
	select {
	case <-f.started:
	case <-time.After(time.Second):
		t.Fatal("first submission never reached the backend")
	}

	_, err := w.Submit(context.Background(), d)
	require.ErrorIs(t, err, ErrSubmitInFlight)
	close(f.block)
	require.NoError(t, <-done)
	require.Len(t, f.creates, 1)
}

func TestEditDraftCountsHeldStock(t *testing.T) {
	f := sampleBackend()
	customer := int64(3)
	f.invoice = invoices.Invoice{
		ID:         5,
		CustomerID: &customer,
		Currency:   money.SYP,
		Lines: []invoices.Line{{
			FeedID: 1, FeedName: "Starter", QuantityKg: dec("200"),
			PriceType: money.Wholesale, UnitPrice: dec("4000"),
		}},
		TotalAmount: dec("800000"),
		TotalPaid:   dec("700000"),
		Remaining:   dec("100000"),
	}
	w := newWorkflow(t, f)
	d, err := w.EditDraft(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, d.Lines[0].AvailableKg.Equal(dec("1200")))
	require.True(t, d.Lines[0].UnitPrice.Equal(dec("4000")))
	require.Equal(t, money.Wholesale, d.PriceType)
	require.ErrorIs(t, d.SetCurrency(money.USD), ErrFixedOnEdit)

	require.NoError(t, d.SetQuantity(0, dec("100")))
	_, err = w.Submit(context.Background(), d)
	require.ErrorIs(t, err, invoices.ErrTotalBelowPaid)

	require.NoError(t, d.SetQuantity(0, dec("1100")))
	_, err = w.Submit(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, f.updates, 1)
	require.True(t, f.updates[0].Items[0].QuantityKg.Equal(dec("1100")))
}

func TestEditDraftKeepsLineTiersAndDeletedFeeds(t *testing.T) {
	f := sampleBackend()
	customer := int64(3)
	// Feed 2 was deleted after the sale, so the catalog no longer lists it.
	f.invoice = invoices.Invoice{
		ID:         6,
		CustomerID: &customer,
		Currency:   money.SYP,
		Lines: []invoices.Line{
			{FeedID: 1, FeedName: "Starter", QuantityKg: dec("10"), PriceType: money.Wholesale, UnitPrice: dec("4000")},
			{FeedID: 2, FeedName: "Grower", QuantityKg: dec("20"), PriceType: money.Retail, UnitPrice: dec("3000")},
		},
		TotalAmount: dec("100000"),
		Remaining:   dec("100000"),
	}
	w := newWorkflow(t, f)
	d, err := w.EditDraft(context.Background(), 6)
	require.NoError(t, err)

	_, err = w.Submit(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, f.updates, 1)
	items := f.updates[0].Items
	require.Equal(t, "wholesale", items[0].PriceType)
	require.Equal(t, "retail", items[1].PriceType)
	require.True(t, items[1].UnitPrice.Equal(dec("3000")))

	require.NoError(t, d.RemoveLine(1))
	d.AddLine()
	require.NoError(t, d.SetPriceType(money.Retail))
	require.NoError(t, d.SelectFeed(1, 2))
	require.Equal(t, "Grower", d.Lines[1].FeedName)
	require.True(t, d.Lines[1].UnitPrice.Equal(dec("3000")))
	require.True(t, d.Lines[1].AvailableKg.Equal(dec("20")))
	require.NoError(t, d.SetQuantity(1, dec("15")))
	require.ErrorContains(t, d.SelectFeed(1, 9), "unknown feed 9")

	_, err = w.Submit(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, f.updates, 2)
	items = f.updates[1].Items
	require.Equal(t, int64(2), items[1].FeedID)
	require.Equal(t, "retail", items[1].PriceType)
	require.True(t, items[1].UnitPrice.Equal(dec("3000")))
	require.True(t, items[1].QuantityKg.Equal(dec("15")))
}

func TestRecordPaymentChecksRemainingAndReloads(t *testing.T) {
	f := sampleBackend()
	inv := invoices.Invoice{ID: 5, Currency: money.SYP, TotalAmount: dec("1000"), TotalPaid: dec("400"), Remaining: dec("600")}
	f.invoice = inv
	w := newWorkflow(t, f)

	_, err := w.RecordPayment(context.Background(), inv, dec("700"), "cash", "")
	require.ErrorIs(t, err, invoices.ErrOverpayment)
	_, err = w.RecordPayment(context.Background(), inv, decimal.Zero, "cash", "")
	require.ErrorIs(t, err, invoices.ErrInvalidAmount)
	require.Empty(t, f.payments)

	f.payErr = errors.New("amount exceeds remaining balance (100)")
	_, err = w.RecordPayment(context.Background(), inv, dec("600"), "cash", "")
	require.EqualError(t, err, "amount exceeds remaining balance (100)")
	require.Equal(t, 1, f.gets)

	f.payErr = nil
	_, err = w.RecordPayment(context.Background(), inv, dec("600"), "cash", "paid at gate")
	require.NoError(t, err)
	require.Equal(t, 2, f.gets)
	require.Equal(t, int64(5), *f.payments[1].InvoiceID)

	settled := inv
	settled.TotalPaid, settled.Remaining = dec("1000"), decimal.Zero
	_, err = w.RecordPayment(context.Background(), settled, dec("1"), "cash", "")
	require.ErrorIs(t, err, invoices.ErrInvoiceSettled)
}

func TestPayCustomerDebtChecksProjection(t *testing.T) {
	f := sampleBackend()
	f.detail = invoices.CustomerDebtDetail{
		CustomerID: 3,
		OpenInvoices: []invoices.Summary{
			{ID: 1, Currency: money.SYP, Remaining: dec("300")},
			{ID: 2, Currency: money.USD, Remaining: dec("50")},
			{ID: 3, Currency: money.SYP, Remaining: dec("200")},
		},
	}
	w := newWorkflow(t, f)

	_, err := w.PayCustomerDebt(context.Background(), 3, money.SYP, dec("600"), "cash", "")
	require.ErrorIs(t, err, invoices.ErrOverpayment)
	require.Empty(t, f.payments)

	res, err := w.PayCustomerDebt(context.Background(), 3, money.SYP, dec("450"), "cash", "")
	require.NoError(t, err)
	require.True(t, res.Total.Equal(dec("450")))
	require.Equal(t, int64(3), *f.payments[0].CustomerID)
	require.Equal(t, "SYP", f.payments[0].Currency)
}
