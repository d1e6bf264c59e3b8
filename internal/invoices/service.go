package invoices

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

const (
	idempotencyCreate  = "invoices.create"
	idempotencyPayment = "payments.record"

	defaultPaymentMethod = "cash"
)

// ErrPriceChanged is returned when a submitted unit price no longer matches
// the configured price. The client should reload prices and resubmit.
var ErrPriceChanged = errors.New("invoices: price changed")

// Idempotency guards create requests against duplicate submission.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Recorder receives domain counters.
type Recorder interface {
	InvoiceCreated(currency string)
	PaymentRecorded(currency string, amount float64)
}

type nopRecorder struct{}

func (nopRecorder) InvoiceCreated(string)           {}
func (nopRecorder) PaymentRecorded(string, float64) {}

// Service is the authoritative invoice and payment workflow.
type Service struct {
	repo        Repository
	idem        Idempotency
	invalidator shared.Invalidator
	metrics     Recorder
}

// NewService wires the invoice service. Nil collaborators are replaced by no-ops.
func NewService(repo Repository, idem Idempotency, invalidator shared.Invalidator, metrics Recorder) *Service {
	if invalidator == nil {
		invalidator = shared.NopInvalidator{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{repo: repo, idem: idem, invalidator: invalidator, metrics: metrics}
}

// Get returns an invoice with lines, payments and derived balance.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns invoice summaries, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	return s.repo.List(ctx, filter)
}

// Debts returns the per-customer debt projection.
func (s *Service) Debts(ctx context.Context) ([]CustomerDebt, error) {
	return s.repo.Debts(ctx)
}

// CustomerDebt returns one customer's debt, open invoices and payment history.
func (s *Service) CustomerDebt(ctx context.Context, customerID int64) (CustomerDebtDetail, error) {
	return s.repo.CustomerDebt(ctx, customerID)
}

// Create persists a new invoice, decrements stock and records the initial
// payment through the same path as later payments.
func (s *Service) Create(ctx context.Context, req CreateRequest, idemKey string) (Invoice, error) {
	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return Invoice{}, invalid(ErrInvalidCurrency, 0, "unsupported currency %q", req.Currency)
	}
	if err := s.claim(ctx, idemKey, idempotencyCreate); err != nil {
		return Invoice{}, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		draft := Draft{IsWalkIn: req.IsWalkIn, Currency: currency, InitialPayment: req.InitialPayment}
		var customerOK bool
		if !req.IsWalkIn && req.CustomerID != nil {
			draft.CustomerID = req.CustomerID
			ok, err := tx.CustomerExists(ctx, *req.CustomerID)
			if err != nil {
				return err
			}
			customerOK = ok
		}
		lines, err := s.buildLines(ctx, tx, &draft, req.Items, nil)
		if err != nil {
			return err
		}
		if err := draft.Validate(func(int64) bool { return customerOK }); err != nil {
			return err
		}

		header := Invoice{IsWalkIn: req.IsWalkIn, Currency: currency}
		if !req.IsWalkIn {
			header.CustomerID = req.CustomerID
		}
		inv, err := tx.InsertInvoice(ctx, header)
		if err != nil {
			return err
		}
		if err := tx.ReplaceLines(ctx, inv.ID, lines); err != nil {
			return err
		}
		taken := quantitiesByFeed(lines)
		for _, feedID := range slices.Sorted(maps.Keys(taken)) {
			if err := tx.AdjustStock(ctx, feedID, taken[feedID].Neg()); err != nil {
				return stockError(err)
			}
		}
		if req.InitialPayment.IsPositive() {
			method := strings.TrimSpace(req.PaymentMethod)
			if _, err := s.recordPayment(ctx, tx, inv.ID, req.InitialPayment, currency, method, ""); err != nil {
				return err
			}
		}
		id = inv.ID
		return nil
	})
	if err != nil {
		s.release(ctx, idemKey, idempotencyCreate)
		return Invoice{}, err
	}

	s.metrics.InvoiceCreated(string(currency))
	if req.InitialPayment.IsPositive() {
		s.metrics.PaymentRecorded(string(currency), req.InitialPayment.InexactFloat64())
	}
	_ = s.invalidator.Bump(ctx)
	return s.repo.Get(ctx, id)
}

// Update replaces the line set of an invoice. Stock held by the old lines is
// available to the new ones, and the new total may not fall below what has
// already been paid.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := checkImmutable(current, req); err != nil {
			return err
		}

		draft := Draft{CustomerID: current.CustomerID, IsWalkIn: current.IsWalkIn, Currency: current.Currency}
		if current.IsWalkIn {
			draft.InitialPayment = current.TotalPaid
		}
		lines, err := s.buildLines(ctx, tx, &draft, req.Items, current.Lines)
		if err != nil {
			return err
		}
		if err := draft.Validate(nil); err != nil {
			return err
		}
		if err := CheckEditAgainstPaid(draft.Total(), current.TotalPaid); err != nil {
			return err
		}

		if err := tx.ReplaceLines(ctx, id, lines); err != nil {
			return err
		}
		delta := quantitiesByFeed(current.Lines)
		for feedID, qty := range quantitiesByFeed(lines) {
			delta[feedID] = delta[feedID].Sub(qty)
		}
		for _, feedID := range slices.Sorted(maps.Keys(delta)) {
			if delta[feedID].IsZero() {
				continue
			}
			if err := tx.AdjustStock(ctx, feedID, delta[feedID]); err != nil {
				return stockError(err)
			}
		}
		return tx.TouchInvoice(ctx, id)
	})
	if err != nil {
		return Invoice{}, err
	}
	_ = s.invalidator.Bump(ctx)
	return s.repo.Get(ctx, id)
}

// RecordPayment appends a payment to one invoice, or spreads a customer
// payment over that customer's open invoices oldest first. Both shapes go
// through the same invoice-scoped check.
func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest, idemKey string) (PaymentResult, error) {
	if (req.InvoiceID == nil) == (req.CustomerID == nil) {
		return PaymentResult{}, shared.Invalid("specify either invoiceId or customerId")
	}
	if !req.Amount.IsPositive() {
		return PaymentResult{}, invalid(ErrInvalidAmount, 0, "enter a valid amount")
	}
	var currency money.Currency
	if req.Currency != "" {
		c, err := money.ParseCurrency(req.Currency)
		if err != nil {
			return PaymentResult{}, invalid(ErrInvalidCurrency, 0, "unsupported currency %q", req.Currency)
		}
		currency = c
	}
	if req.CustomerID != nil && currency == "" {
		return PaymentResult{}, invalid(ErrInvalidCurrency, 0, "currency is required for customer payments")
	}
	if err := s.claim(ctx, idemKey, idempotencyPayment); err != nil {
		return PaymentResult{}, err
	}

	var written []Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		written = nil
		if req.InvoiceID != nil {
			p, err := s.recordPayment(ctx, tx, *req.InvoiceID, req.Amount, currency, req.PaymentMethod, req.Notes)
			if err != nil {
				return err
			}
			written = append(written, p)
			return nil
		}
		open, err := tx.OpenInvoices(ctx, *req.CustomerID, currency)
		if err != nil {
			return err
		}
		allocations, err := AllocateOldestFirst(open, req.Amount)
		if err != nil {
			return err
		}
		for _, a := range allocations {
			p, err := s.recordPayment(ctx, tx, a.InvoiceID, a.Amount, currency, req.PaymentMethod, req.Notes)
			if err != nil {
				return err
			}
			written = append(written, p)
		}
		return nil
	})
	if err != nil {
		s.release(ctx, idemKey, idempotencyPayment)
		return PaymentResult{}, err
	}

	total := decimal.Zero
	for _, p := range written {
		total = total.Add(p.Amount)
		s.metrics.PaymentRecorded(string(p.Currency), p.Amount.InexactFloat64())
	}
	_ = s.invalidator.Bump(ctx)
	return PaymentResult{Payments: written, Total: total}, nil
}

// recordPayment is the single write path for payments. currency may be empty
// to accept the invoice currency.
func (s *Service) recordPayment(ctx context.Context, tx TxRepository, invoiceID int64, amount decimal.Decimal,
	currency money.Currency, method, notes string) (Payment, error) {
	inv, err := tx.LockInvoice(ctx, invoiceID)
	if err != nil {
		return Payment{}, err
	}
	if currency != "" && currency != inv.Currency {
		return Payment{}, invalid(ErrCurrencyMismatch, 0, "payment currency %s does not match invoice currency %s",
			currency, inv.Currency)
	}
	if err := CheckPayment(ComputeBalance(inv.Lines, inv.Payments), amount); err != nil {
		return Payment{}, err
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = defaultPaymentMethod
	}
	p, err := tx.InsertPayment(ctx, Payment{
		InvoiceID:     invoiceID,
		Amount:        amount,
		Currency:      inv.Currency,
		PaymentMethod: method,
		Notes:         strings.TrimSpace(notes),
	})
	if err != nil {
		return Payment{}, err
	}
	if err := tx.TouchInvoice(ctx, invoiceID); err != nil {
		return Payment{}, err
	}
	return p, nil
}

// buildLines locks the referenced feeds and turns requested items into draft
// lines (for validation) and invoice lines (for storage). existing holds the
// lines of the invoice being edited, or nil on create.
func (s *Service) buildLines(ctx context.Context, tx TxRepository, draft *Draft, items []ItemInput, existing []Line) ([]Line, error) {
	ids := make([]int64, 0, len(items)+len(existing))
	for _, it := range items {
		if it.FeedID > 0 {
			ids = append(ids, it.FeedID)
		}
	}
	for _, l := range existing {
		ids = append(ids, l.FeedID)
	}
	stock, err := tx.LockFeeds(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}

	used := make(map[int64]decimal.Decimal)
	lines := make([]Line, 0, len(items))
	draft.Lines = make([]DraftLine, 0, len(items))
	for i, it := range items {
		priceType, err := money.ParsePriceType(it.PriceType)
		if err != nil {
			return nil, invalid(ErrPriceNotConfigured, i+1, "unsupported price type %q for line %d", it.PriceType, i+1)
		}
		dl := DraftLine{FeedID: it.FeedID, QuantityKg: it.QuantityKg, PriceType: priceType}
		if feed, ok := stock[it.FeedID]; ok && (!feed.Deleted || holds(existing, it.FeedID)) {
			dl.FeedName = feed.Name
			dl.AvailableKg = AvailableForEdit(feed.AvailableKg, it.FeedID, existing).Sub(used[it.FeedID])
			unit, err := acceptedPrice(feed, priceType, draft.Currency, it.UnitPrice, existing)
			if err != nil {
				return nil, err
			}
			dl.UnitPrice = unit
		} else {
			dl.FeedID = 0
		}
		if dl.QuantityKg.IsPositive() {
			used[it.FeedID] = used[it.FeedID].Add(dl.QuantityKg)
		}
		draft.Lines = append(draft.Lines, dl)
		lines = append(lines, Line{
			Position:   i + 1,
			FeedID:     dl.FeedID,
			FeedName:   dl.FeedName,
			QuantityKg: dl.QuantityKg,
			PriceType:  priceType,
			UnitPrice:  dl.UnitPrice,
		})
	}
	return lines, nil
}

// acceptedPrice returns the unit price to capture. A submitted price must
// equal the configured one, or on edit the price already captured for the
// same feed and tier. A zero submitted price takes the configured one.
func acceptedPrice(feed FeedStock, priceType money.PriceType, currency money.Currency, submitted decimal.Decimal, existing []Line) (decimal.Decimal, error) {
	configured := ResolvePrice(feed.Prices, priceType, currency)
	if submitted.IsZero() || submitted.Equal(configured) {
		return configured, nil
	}
	for _, l := range existing {
		if l.FeedID == feed.ID && l.PriceType == priceType && l.UnitPrice.Equal(submitted) {
			return submitted, nil
		}
	}
	if configured.IsZero() {
		return decimal.Zero, nil
	}
	return decimal.Zero, &priceChangedError{
		message: fmt.Sprintf("price of %s changed to %s; reload prices and try again", feed.Name, configured.String()),
	}
}

type priceChangedError struct{ message string }

func (e *priceChangedError) Error() string { return e.message }

func (e *priceChangedError) Unwrap() []error { return []error{ErrPriceChanged, shared.ErrConflict} }

func checkImmutable(current Invoice, req UpdateRequest) error {
	if req.IsWalkIn != nil && *req.IsWalkIn != current.IsWalkIn {
		return invalid(ErrImmutableField, 0, "the walk-in flag of an invoice cannot be changed")
	}
	if req.CustomerID != nil && (current.CustomerID == nil || *req.CustomerID != *current.CustomerID) {
		return invalid(ErrImmutableField, 0, "the customer of an invoice cannot be changed")
	}
	if req.Currency != nil && !strings.EqualFold(*req.Currency, string(current.Currency)) {
		return invalid(ErrImmutableField, 0, "the currency of an invoice cannot be changed")
	}
	return nil
}

func (s *Service) claim(ctx context.Context, key, module string) error {
	if s.idem == nil || key == "" {
		return nil
	}
	return s.idem.CheckAndInsert(ctx, key, module)
}

func (s *Service) release(ctx context.Context, key, module string) {
	if s.idem == nil || key == "" {
		return
	}
	_ = s.idem.Delete(ctx, key, module)
}

// stockError turns a failed guarded stock move into the invoice rejection.
func stockError(err error) error {
	if errors.Is(err, shared.ErrConflict) {
		return &shared.Error{Kind: shared.ErrConflict, Message: "insufficient stock; reload feeds and try again"}
	}
	return err
}

func quantitiesByFeed(lines []Line) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(lines))
	for _, l := range lines {
		out[l.FeedID] = out[l.FeedID].Add(l.QuantityKg)
	}
	return out
}

func holds(lines []Line, feedID int64) bool {
	for _, l := range lines {
		if l.FeedID == feedID {
			return true
		}
	}
	return false
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
