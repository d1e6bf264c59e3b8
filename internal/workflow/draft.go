package workflow

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/invoices"
	"github.com/feedmill/feedmill/internal/money"
)

var (
	// ErrLastLine is returned when removing the only line of a draft.
	ErrLastLine = errors.New("an invoice needs at least one line")
	// ErrFixedOnEdit is returned when changing customer, walk-in flag,
	// currency or initial payment of an existing invoice.
	ErrFixedOnEdit = errors.New("only the lines of an existing invoice can change")
)

// Draft is an invoice being composed or edited. Prices are re-resolved from
// the feed snapshot whenever the feed, price type or currency changes.
type Draft struct {
	invoices.Draft

	// EditingID is the invoice being edited, 0 for a new invoice.
	EditingID int64
	// PaymentMethod is sent with the initial payment.
	PaymentMethod string

	feeds map[int64]feeds.Feed
	// held is what the edited invoice already holds per feed.
	held []invoices.Line
	// paid is what the edited invoice has already received.
	paid decimal.Decimal
}

// Editing reports whether the draft modifies an existing invoice.
func (d *Draft) Editing() bool { return d.EditingID != 0 }

func newDraft(catalog map[int64]feeds.Feed) *Draft {
	d := &Draft{
		Draft: invoices.Draft{
			Currency:       money.SYP,
			PriceType:      money.Retail,
			InitialPayment: decimal.Zero,
		},
		feeds: catalog,
	}
	d.AddLine()
	return d
}

// AddLine appends an empty line.
func (d *Draft) AddLine() {
	d.Lines = append(d.Lines, invoices.DraftLine{PriceType: d.PriceType, QuantityKg: decimal.Zero})
}

// RemoveLine deletes line i (0-based). The last remaining line cannot be removed.
func (d *Draft) RemoveLine(i int) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	if len(d.Lines) == 1 {
		return ErrLastLine
	}
	d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
	return nil
}

// SelectFeed points line i at a feed and prices it.
func (d *Draft) SelectFeed(i int, feedID int64) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	line := &d.Lines[i]
	feed, ok := d.feeds[feedID]
	if !ok {
		// A feed deleted since the sale stays selectable on the invoice that holds it.
		name, price, held := d.heldPrice(feedID, d.PriceType)
		if !held {
			return fmt.Errorf("unknown feed %d", feedID)
		}
		line.FeedID = feedID
		line.FeedName = name
		line.AvailableKg = invoices.AvailableForEdit(decimal.Zero, feedID, d.held)
		line.PriceType = d.PriceType
		line.UnitPrice = price
		return nil
	}
	line.FeedID = feed.ID
	line.FeedName = feed.Name
	line.AvailableKg = invoices.AvailableForEdit(feed.QuantityKg, feed.ID, d.held)
	line.PriceType = d.PriceType
	line.UnitPrice = invoices.ResolvePrice(feed.Prices, d.PriceType, d.Currency)
	return nil
}

// SetQuantity sets the requested kilograms of line i.
func (d *Draft) SetQuantity(i int, kg decimal.Decimal) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.Lines[i].QuantityKg = kg
	return nil
}

// SetPriceType switches the tier of every line.
func (d *Draft) SetPriceType(p money.PriceType) error {
	if !p.Valid() {
		return fmt.Errorf("unsupported price type %q", p)
	}
	d.PriceType = p
	d.reprice()
	return nil
}

// SetCurrency switches the invoice currency and re-resolves every price.
func (d *Draft) SetCurrency(c money.Currency) error {
	if d.Editing() && c != d.Currency {
		return ErrFixedOnEdit
	}
	if !c.Valid() {
		return fmt.Errorf("unsupported currency %q", c)
	}
	d.Currency = c
	d.reprice()
	return nil
}

// SetCustomer selects a registered customer and clears walk-in.
func (d *Draft) SetCustomer(id int64) error {
	if d.Editing() {
		return ErrFixedOnEdit
	}
	d.CustomerID = &id
	d.IsWalkIn = false
	return nil
}

// SetWalkIn toggles the walk-in flag. Walk-in invoices have no customer.
func (d *Draft) SetWalkIn(walkIn bool) error {
	if d.Editing() {
		return ErrFixedOnEdit
	}
	d.IsWalkIn = walkIn
	if walkIn {
		d.CustomerID = nil
	}
	return nil
}

// SetInitialPayment sets the amount paid at creation.
func (d *Draft) SetInitialPayment(amount decimal.Decimal) error {
	if d.Editing() {
		return ErrFixedOnEdit
	}
	d.InitialPayment = amount
	return nil
}

// Check runs the local pre-submit gate.
func (d *Draft) Check(customerExists invoices.CustomerChecker) error {
	if err := d.Validate(customerExists); err != nil {
		return err
	}
	if d.Editing() {
		return invoices.CheckEditAgainstPaid(d.Total(), d.paid)
	}
	return nil
}

func (d *Draft) reprice() {
	for i := range d.Lines {
		line := &d.Lines[i]
		line.PriceType = d.PriceType
		if line.FeedID == 0 {
			continue
		}
		if feed, ok := d.feeds[line.FeedID]; ok {
			line.UnitPrice = invoices.ResolvePrice(feed.Prices, d.PriceType, d.Currency)
		} else {
			_, line.UnitPrice, _ = d.heldPrice(line.FeedID, d.PriceType)
		}
	}
}

// heldPrice reports the name and the unit price the edited invoice captured
// for feedID at tier p. The price is zero when no held line used that tier.
func (d *Draft) heldPrice(feedID int64, p money.PriceType) (string, decimal.Decimal, bool) {
	name, price, found := "", decimal.Zero, false
	for _, l := range d.held {
		if l.FeedID != feedID {
			continue
		}
		if !found {
			name, found = l.FeedName, true
		}
		if l.PriceType == p && price.IsZero() {
			price = l.UnitPrice
		}
	}
	return name, price, found
}

func (d *Draft) checkIndex(i int) error {
	if i < 0 || i >= len(d.Lines) {
		return fmt.Errorf("line %d does not exist", i+1)
	}
	return nil
}

func (d *Draft) items() []invoices.ItemInput {
	out := make([]invoices.ItemInput, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, invoices.ItemInput{
			FeedID:     l.FeedID,
			QuantityKg: l.QuantityKg,
			PriceType:  string(l.PriceType),
			UnitPrice:  l.UnitPrice,
		})
	}
	return out
}
