// Package workflow drives invoice composition and payments from the console.
// It holds a snapshot of customers and feeds, checks drafts locally and only
// then talks to the backend, which stays authoritative.
package workflow

import (
	"context"

	"github.com/feedmill/feedmill/internal/client"
	"github.com/feedmill/feedmill/internal/customers"
	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/invoices"
)

// FeedSource lists feeds with their prices.
type FeedSource interface {
	All(ctx context.Context) ([]feeds.Feed, error)
}

// CustomerSource lists customers.
type CustomerSource interface {
	All(ctx context.Context) ([]customers.Customer, error)
}

// InvoiceAPI is the invoice part of the backend.
type InvoiceAPI interface {
	List(ctx context.Context, q client.InvoiceQuery) (invoices.ListResponse, error)
	Get(ctx context.Context, id int64) (invoices.Invoice, error)
	Create(ctx context.Context, req invoices.CreateRequest, idemKey string) (invoices.Invoice, error)
	Update(ctx context.Context, id int64, req invoices.UpdateRequest) (invoices.Invoice, error)
}

// PaymentAPI is the payments and debts part of the backend.
type PaymentAPI interface {
	Pay(ctx context.Context, req invoices.PaymentRequest, idemKey string) (invoices.PaymentResult, error)
	Customer(ctx context.Context, customerID int64) (invoices.CustomerDebtDetail, error)
}

// Backend bundles the facades of a *client.Client.
type Backend struct {
	Feeds     FeedSource
	Customers CustomerSource
	Invoices  InvoiceAPI
	Payments  PaymentAPI
}

// FromClient wires a Backend to the HTTP client.
func FromClient(c *client.Client) Backend {
	return Backend{
		Feeds:     c.Feeds(),
		Customers: c.Customers(),
		Invoices:  c.Invoices(),
		Payments:  c.Debts(),
	}
}
