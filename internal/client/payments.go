package client

import (
	"context"
	"net/http"

	"github.com/feedmill/feedmill/internal/invoices"
)

// DebtsAPI wraps POST /payments, GET /debts and GET /customers/{id}/debt.
type DebtsAPI struct{ c *Client }

// Debts returns the payments and debts facade.
func (c *Client) Debts() DebtsAPI { return DebtsAPI{c} }

// Pay posts a payment against an invoice or, with CustomerID set, against a
// customer's open invoices oldest first.
func (a DebtsAPI) Pay(ctx context.Context, req invoices.PaymentRequest, idemKey string) (invoices.PaymentResult, error) {
	var out invoices.PaymentResult
	err := a.c.do(ctx, http.MethodPost, "/payments", nil, req, &out, idempotencyKey(idemKey))
	return out, err
}

// List returns the per-customer debt projection.
func (a DebtsAPI) List(ctx context.Context) ([]invoices.CustomerDebt, error) {
	var out []invoices.CustomerDebt
	err := a.c.do(ctx, http.MethodGet, "/debts", nil, nil, &out)
	return out, err
}

func (a DebtsAPI) Customer(ctx context.Context, customerID int64) (invoices.CustomerDebtDetail, error) {
	var out invoices.CustomerDebtDetail
	err := a.c.do(ctx, http.MethodGet, idPath("/customers", customerID, "debt"), nil, nil, &out)
	return out, err
}
