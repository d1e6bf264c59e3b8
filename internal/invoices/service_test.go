package invoices

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

type memoryState struct {
	feeds     map[int64]FeedStock
	customers map[int64]string
	invoices  map[int64]Invoice
	nextID    int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		feeds:     make(map[int64]FeedStock, len(s.feeds)),
		customers: s.customers,
		invoices:  make(map[int64]Invoice, len(s.invoices)),
		nextID:    s.nextID,
	}
	for k, v := range s.feeds {
		out.feeds[k] = v
	}
	for k, v := range s.invoices {
		v.Lines = append([]Line(nil), v.Lines...)
		v.Payments = append([]Payment(nil), v.Payments...)
		out.invoices[k] = v
	}
	return out
}

type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
}

type memoryTx struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		feeds: map[int64]FeedStock{
			1: {ID: 1, Name: "ذرة صفراء", AvailableKg: d("5000"), Prices: cornPrices},
			2: {ID: 2, Name: "صويا", AvailableKg: d("800"), Prices: []money.Price{
				{PriceType: money.Retail, Currency: money.SYP, PricePerKg: d("4000")},
			}},
		},
		customers: map[int64]string{1: "أبو محمد", 2: "سامر"},
		invoices:  map[int64]Invoice{},
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := r.state.clone()
	if err := fn(ctx, &memoryTx{state: &staged}); err != nil {
		return err
	}
	r.state = staged
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (&memoryTx{state: &r.state}).LockInvoice(ctx, id)
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Summary
	for _, inv := range r.state.invoices {
		if filter.CustomerID != nil && (inv.CustomerID == nil || *inv.CustomerID != *filter.CustomerID) {
			continue
		}
		out = append(out, summarize(r.state, inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) Debts(ctx context.Context) ([]CustomerDebt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct {
		id       int64
		currency money.Currency
	}
	agg := map[key]*CustomerDebt{}
	for _, inv := range r.state.invoices {
		if inv.CustomerID == nil {
			continue
		}
		s := summarize(r.state, inv)
		k := key{*inv.CustomerID, inv.Currency}
		d, ok := agg[k]
		if !ok {
			d = &CustomerDebt{CustomerID: k.id, CustomerName: r.state.customers[k.id], Currency: k.currency}
			agg[k] = d
		}
		d.TotalAmount = d.TotalAmount.Add(s.TotalAmount)
		d.TotalPaid = d.TotalPaid.Add(s.TotalPaid)
		d.Remaining = d.Remaining.Add(s.Remaining)
		if s.Remaining.IsPositive() {
			d.OpenInvoices++
		}
	}
	out := []CustomerDebt{}
	for _, d := range agg {
		if d.Remaining.IsPositive() {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memoryRepo) CustomerDebt(ctx context.Context, customerID int64) (CustomerDebtDetail, error) {
	name, ok := r.state.customers[customerID]
	if !ok {
		return CustomerDebtDetail{}, ErrCustomerNotFound
	}
	debts, _ := r.Debts(ctx)
	detail := CustomerDebtDetail{CustomerID: customerID, CustomerName: name}
	for _, d := range debts {
		if d.CustomerID == customerID {
			detail.Debts = append(detail.Debts, d)
		}
	}
	return detail, nil
}

func summarize(s memoryState, inv Invoice) Summary {
	b := ComputeBalance(inv.Lines, inv.Payments)
	sum := Summary{
		ID: inv.ID, CustomerID: inv.CustomerID, IsWalkIn: inv.IsWalkIn, Currency: inv.Currency,
		TotalAmount: b.TotalAmount, TotalPaid: b.TotalPaid, Remaining: b.Remaining, CreatedAt: inv.CreatedAt,
	}
	if inv.CustomerID != nil {
		sum.CustomerName = s.customers[*inv.CustomerID]
	}
	return sum
}

func (t *memoryTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	_, ok := t.state.customers[id]
	return ok, nil
}

func (t *memoryTx) LockFeeds(ctx context.Context, ids []int64) (map[int64]FeedStock, error) {
	out := make(map[int64]FeedStock)
	for _, id := range ids {
		if f, ok := t.state.feeds[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (t *memoryTx) AdjustStock(ctx context.Context, feedID int64, delta decimal.Decimal) error {
	f := t.state.feeds[feedID]
	next := f.AvailableKg.Add(delta)
	if next.IsNegative() {
		return shared.Conflict("insufficient stock")
	}
	f.AvailableKg = next
	t.state.feeds[feedID] = f
	return nil
}

func (t *memoryTx) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	t.state.nextID++
	inv.ID = t.state.nextID
	inv.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(inv.ID) * time.Hour)
	inv.UpdatedAt = inv.CreatedAt
	t.state.invoices[inv.ID] = inv
	return inv, nil
}

func (t *memoryTx) ReplaceLines(ctx context.Context, invoiceID int64, lines []Line) error {
	inv := t.state.invoices[invoiceID]
	inv.Lines = append([]Line(nil), lines...)
	t.state.invoices[invoiceID] = inv
	return nil
}

func (t *memoryTx) LockInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := t.state.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	inv.Lines = append([]Line(nil), inv.Lines...)
	for i := range inv.Lines {
		inv.Lines[i].FeedName = t.state.feeds[inv.Lines[i].FeedID].Name
	}
	inv.Payments = append([]Payment(nil), inv.Payments...)
	inv.finalize()
	return inv, nil
}

func (t *memoryTx) OpenInvoices(ctx context.Context, customerID int64, currency money.Currency) ([]Summary, error) {
	var out []Summary
	for _, inv := range t.state.invoices {
		if inv.CustomerID == nil || *inv.CustomerID != customerID || inv.Currency != currency {
			continue
		}
		if s := summarize(*t.state, inv); s.Remaining.IsPositive() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	inv := t.state.invoices[p.InvoiceID]
	p.ID = int64(len(inv.Payments) + 1)
	p.CreatedAt = time.Now()
	inv.Payments = append(inv.Payments, p)
	t.state.invoices[p.InvoiceID] = inv
	return p, nil
}

func (t *memoryTx) TouchInvoice(ctx context.Context, id int64) error {
	return nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[module+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key, module string) error {
	delete(m.keys, module+key)
	return nil
}

type countingRecorder struct {
	invoices int
	payments int
}

func (c *countingRecorder) InvoiceCreated(string)           { c.invoices++ }
func (c *countingRecorder) PaymentRecorded(string, float64) { c.payments++ }

func roundTripRequest() CreateRequest {
	return CreateRequest{
		CustomerID:     int64p(1),
		Currency:       "SYP",
		InitialPayment: d("20000"),
		Items: []ItemInput{
			{FeedID: 1, QuantityKg: d("10"), PriceType: "retail", UnitPrice: d("2500")},
			{FeedID: 2, QuantityKg: d("5"), PriceType: "retail", UnitPrice: d("4000")},
		},
	}
}

func newTestService() (*Service, *memoryRepo, *countingRecorder) {
	repo := newMemoryRepo()
	rec := &countingRecorder{}
	return NewService(repo, &memoryIdempotency{keys: map[string]bool{}}, nil, rec), repo, rec
}

func TestCreateInvoiceRoundTrip(t *testing.T) {
	svc, repo, rec := newTestService()
	ctx := context.Background()

	inv, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)
	require.True(t, inv.TotalAmount.Equal(d("45000")))
	require.True(t, inv.TotalPaid.Equal(d("20000")))
	require.True(t, inv.Remaining.Equal(d("25000")))
	require.Len(t, inv.Payments, 1)
	require.Equal(t, "cash", inv.Payments[0].PaymentMethod)
	require.True(t, repo.state.feeds[1].AvailableKg.Equal(d("4990")))
	require.True(t, repo.state.feeds[2].AvailableKg.Equal(d("795")))
	require.Equal(t, 1, rec.invoices)
	require.Equal(t, 1, rec.payments)
}

func TestCreateRejectsInsufficientStockWithoutSideEffects(t *testing.T) {
	svc, repo, _ := newTestService()
	req := roundTripRequest()
	req.Items[0].QuantityKg = d("6000")

	_, err := svc.Create(context.Background(), req, "")
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Contains(t, err.Error(), "ذرة صفراء")
	require.Contains(t, err.Error(), "6000")
	require.Contains(t, err.Error(), "5000")
	require.Empty(t, repo.state.invoices)
	require.True(t, repo.state.feeds[1].AvailableKg.Equal(d("5000")))
}

func TestCreateCountsEarlierLinesOfSameFeed(t *testing.T) {
	svc, _, _ := newTestService()
	req := roundTripRequest()
	req.InitialPayment = decimal.Zero
	req.Items = []ItemInput{
		{FeedID: 2, QuantityKg: d("500"), PriceType: "retail"},
		{FeedID: 2, QuantityKg: d("301"), PriceType: "retail"},
	}
	_, err := svc.Create(context.Background(), req, "")
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCreateWalkIn(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	req := roundTripRequest()
	req.CustomerID = nil
	req.IsWalkIn = true

	_, err := svc.Create(ctx, req, "")
	require.ErrorIs(t, err, ErrWalkInMustPayInFull)

	req.InitialPayment = d("45000")
	inv, err := svc.Create(ctx, req, "")
	require.NoError(t, err)
	require.True(t, inv.Remaining.IsZero())
	require.True(t, inv.Settled)
	require.Nil(t, inv.CustomerID)
}

func TestCreateRejectsUnknownCustomerAndUnpricedLine(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	req := roundTripRequest()
	req.CustomerID = int64p(42)
	_, err := svc.Create(ctx, req, "")
	require.ErrorIs(t, err, ErrCustomerRequired)

	req = roundTripRequest()
	req.Currency = "USD"
	req.InitialPayment = decimal.Zero
	req.Items[0].UnitPrice = decimal.Zero
	req.Items[1].UnitPrice = decimal.Zero
	_, err = svc.Create(ctx, req, "")
	require.ErrorIs(t, err, ErrPriceNotConfigured)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, 2, verr.Line)
}

func TestCreateRejectsStalePrice(t *testing.T) {
	svc, _, _ := newTestService()
	req := roundTripRequest()
	req.Items[0].UnitPrice = d("2400")

	_, err := svc.Create(context.Background(), req, "")
	require.ErrorIs(t, err, ErrPriceChanged)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateIdempotency(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, roundTripRequest(), "key-1")
	require.NoError(t, err)
	_, err = svc.Create(ctx, roundTripRequest(), "key-1")
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Len(t, repo.state.invoices, 1)

	bad := roundTripRequest()
	bad.Items = nil
	_, err = svc.Create(ctx, bad, "key-2")
	require.ErrorIs(t, err, ErrNoLines)
	_, err = svc.Create(ctx, roundTripRequest(), "key-2")
	require.NoError(t, err)
}

func TestRecordPaymentOnInvoice(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	inv, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, PaymentRequest{InvoiceID: &inv.ID, Amount: d("25000.01")}, "")
	require.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.RecordPayment(ctx, PaymentRequest{InvoiceID: &inv.ID, Amount: d("100"), Currency: "USD"}, "")
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	res, err := svc.RecordPayment(ctx, PaymentRequest{InvoiceID: &inv.ID, Amount: d("25000"), PaymentMethod: "transfer"}, "")
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)
	require.Equal(t, "transfer", res.Payments[0].PaymentMethod)

	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, got.Remaining.IsZero())
	require.True(t, got.Settled)

	_, err = svc.RecordPayment(ctx, PaymentRequest{InvoiceID: &inv.ID, Amount: d("1")}, "")
	require.ErrorIs(t, err, ErrInvoiceSettled)
}

func TestRecordPaymentRequiresOneTarget(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, PaymentRequest{Amount: d("1")}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPayment(ctx, PaymentRequest{InvoiceID: int64p(1), CustomerID: int64p(1), Amount: d("1")}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPayment(ctx, PaymentRequest{InvoiceID: int64p(1), Amount: decimal.Zero}, "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.RecordPayment(ctx, PaymentRequest{CustomerID: int64p(1), Amount: d("1")}, "")
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestCustomerPaymentAllocatesOldestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)
	second, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, PaymentRequest{CustomerID: int64p(1), Amount: d("50000.01"), Currency: "SYP"}, "")
	require.ErrorIs(t, err, ErrOverpayment)

	res, err := svc.RecordPayment(ctx, PaymentRequest{CustomerID: int64p(1), Amount: d("30000"), Currency: "SYP"}, "")
	require.NoError(t, err)
	require.Len(t, res.Payments, 2)
	require.True(t, res.Total.Equal(d("30000")))

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, got.Settled)
	got, err = svc.Get(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, got.Remaining.Equal(d("20000")))

	debts, err := svc.Debts(ctx)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	require.True(t, debts[0].Remaining.Equal(d("20000")))
	require.Equal(t, 1, debts[0].OpenInvoices)
}

func TestUpdateReplacesLinesAndMovesStock(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	inv, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)

	// 795 kg left of feed 2 plus the 5 kg this invoice holds.
	updated, err := svc.Update(ctx, inv.ID, UpdateRequest{Items: []ItemInput{
		{FeedID: 2, QuantityKg: d("800"), PriceType: "retail", UnitPrice: d("4000")},
	}})
	require.NoError(t, err)
	require.True(t, updated.TotalAmount.Equal(d("3200000")))
	require.True(t, repo.state.feeds[1].AvailableKg.Equal(d("5000")))
	require.True(t, repo.state.feeds[2].AvailableKg.IsZero())

	_, err = svc.Update(ctx, inv.ID, UpdateRequest{Items: []ItemInput{
		{FeedID: 2, QuantityKg: d("800.5"), PriceType: "retail"},
	}})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestUpdateRejectsTotalBelowPaid(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	inv, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, inv.ID, UpdateRequest{Items: []ItemInput{
		{FeedID: 1, QuantityKg: d("7"), PriceType: "retail"},
	}})
	require.ErrorIs(t, err, ErrTotalBelowPaid)
	require.True(t, repo.state.feeds[1].AvailableKg.Equal(d("4990")))
}

func TestUpdateKeepsCapturedPriceAndRejectsImmutableChanges(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	inv, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)

	f := repo.state.feeds[1]
	f.Prices = []money.Price{{PriceType: money.Retail, Currency: money.SYP, PricePerKg: d("2700")}}
	repo.state.feeds[1] = f

	updated, err := svc.Update(ctx, inv.ID, UpdateRequest{Items: []ItemInput{
		{FeedID: 1, QuantityKg: d("12"), PriceType: "retail", UnitPrice: d("2500")},
	}})
	require.NoError(t, err)
	require.True(t, updated.Lines[0].UnitPrice.Equal(d("2500")))

	usd := "USD"
	_, err = svc.Update(ctx, inv.ID, UpdateRequest{Currency: &usd, Items: []ItemInput{
		{FeedID: 1, QuantityKg: d("12"), PriceType: "retail"},
	}})
	require.ErrorIs(t, err, ErrImmutableField)

	_, err = svc.Update(ctx, inv.ID, UpdateRequest{CustomerID: int64p(2), Items: []ItemInput{
		{FeedID: 1, QuantityKg: d("12"), PriceType: "retail"},
	}})
	require.ErrorIs(t, err, ErrImmutableField)

	_, err = svc.Update(ctx, 99, UpdateRequest{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeletedFeedKeepsHistoricalLine(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	inv, err := svc.Create(ctx, roundTripRequest(), "")
	require.NoError(t, err)

	f := repo.state.feeds[1]
	f.Deleted = true
	f.Prices = nil
	repo.state.feeds[1] = f

	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, got.Lines[0].UnitPrice.Equal(d("2500")))
	require.True(t, got.Lines[0].QuantityKg.Equal(d("10")))
	require.Equal(t, "ذرة صفراء", got.Lines[0].FeedName)

	req := roundTripRequest()
	req.InitialPayment = decimal.Zero
	_, err = svc.Create(ctx, req, "")
	require.ErrorIs(t, err, ErrFeedRequired)
}
