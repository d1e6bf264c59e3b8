package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/feedmill/feedmill/internal/purchases"
	"github.com/feedmill/feedmill/internal/shared"
)

// PurchaseList is the data of GET /purchases.
type PurchaseList struct {
	Purchases  []purchases.Purchase `json:"purchases"`
	Pagination shared.Pagination    `json:"pagination"`
}

// PurchasesAPI wraps /purchases.
type PurchasesAPI struct{ c *Client }

// Purchases returns the purchases facade.
func (c *Client) Purchases() PurchasesAPI { return PurchasesAPI{c} }

// List returns purchases, optionally for one feed (feedID 0 means all).
func (a PurchasesAPI) List(ctx context.Context, page Page, feedID int64) (PurchaseList, error) {
	q := page.query()
	if feedID > 0 {
		q.Set("feed", strconv.FormatInt(feedID, 10))
	}
	var out PurchaseList
	err := a.c.do(ctx, http.MethodGet, "/purchases", q, nil, &out)
	return out, err
}

// Create records a purchase; the backend adds the quantity to stock.
func (a PurchasesAPI) Create(ctx context.Context, req purchases.CreateRequest) (purchases.Purchase, error) {
	var out purchases.Purchase
	err := a.c.do(ctx, http.MethodPost, "/purchases", nil, req, &out)
	return out, err
}

func (a PurchasesAPI) Stats(ctx context.Context) (purchases.Stats, error) {
	var out purchases.Stats
	err := a.c.do(ctx, http.MethodGet, "/purchases/stats", nil, nil, &out)
	return out, err
}
