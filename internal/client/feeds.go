package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/money"
)

// Page selects a page of a listing. Zero values use the backend defaults.
type Page struct {
	Page  int
	Limit int
}

func (p Page) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// FeedsAPI wraps /feeds.
type FeedsAPI struct{ c *Client }

// Feeds returns the feeds facade.
func (c *Client) Feeds() FeedsAPI { return FeedsAPI{c} }

func (a FeedsAPI) List(ctx context.Context, page Page, search string) (feeds.ListResponse, error) {
	q := page.query()
	if search != "" {
		q.Set("search", search)
	}
	var out feeds.ListResponse
	err := a.c.do(ctx, http.MethodGet, "/feeds", q, nil, &out)
	return out, err
}

// All pages through every active feed.
func (a FeedsAPI) All(ctx context.Context) ([]feeds.Feed, error) {
	var all []feeds.Feed
	for page := 1; ; page++ {
		res, err := a.List(ctx, Page{Page: page, Limit: 200}, "")
		if err != nil {
			return nil, err
		}
		all = append(all, res.Feeds...)
		if page >= res.Pagination.TotalPages || len(res.Feeds) == 0 {
			return all, nil
		}
	}
}

func (a FeedsAPI) Get(ctx context.Context, id int64) (feeds.Feed, error) {
	var out feeds.Feed
	err := a.c.do(ctx, http.MethodGet, idPath("/feeds", id), nil, nil, &out)
	return out, err
}

func (a FeedsAPI) Create(ctx context.Context, req feeds.CreateFeedRequest) (feeds.Feed, error) {
	var out feeds.Feed
	err := a.c.do(ctx, http.MethodPost, "/feeds", nil, req, &out)
	return out, err
}

func (a FeedsAPI) Rename(ctx context.Context, id int64, name string) (feeds.Feed, error) {
	var out feeds.Feed
	err := a.c.do(ctx, http.MethodPut, idPath("/feeds", id, "rename"), nil, feeds.RenameFeedRequest{Name: name}, &out)
	return out, err
}

func (a FeedsAPI) Delete(ctx context.Context, id int64) error {
	return a.c.do(ctx, http.MethodDelete, idPath("/feeds", id), nil, nil, nil)
}

func (a FeedsAPI) Prices(ctx context.Context, id int64) ([]money.Price, error) {
	var out []money.Price
	err := a.c.do(ctx, http.MethodGet, idPath("/feeds", id, "prices"), nil, nil, &out)
	return out, err
}

// ReplacePrices overwrites the full price set of a feed.
func (a FeedsAPI) ReplacePrices(ctx context.Context, id int64, prices []money.Price) ([]money.Price, error) {
	req := feeds.ReplacePricesRequest{Prices: make([]feeds.PriceInput, 0, len(prices))}
	for _, p := range prices {
		req.Prices = append(req.Prices, feeds.PriceInput{
			PriceType:  string(p.PriceType),
			Currency:   string(p.Currency),
			PricePerKg: p.PricePerKg,
		})
	}
	var out []money.Price
	err := a.c.do(ctx, http.MethodPut, idPath("/feeds", id, "prices"), nil, req, &out)
	return out, err
}
