package client

import (
	"context"
	"net/http"

	"github.com/feedmill/feedmill/internal/customers"
)

// CustomersAPI wraps /customers.
type CustomersAPI struct{ c *Client }

// Customers returns the customers facade.
func (c *Client) Customers() CustomersAPI { return CustomersAPI{c} }

func (a CustomersAPI) List(ctx context.Context, page Page, search string) (customers.ListResponse, error) {
	q := page.query()
	if search != "" {
		q.Set("search", search)
	}
	var out customers.ListResponse
	err := a.c.do(ctx, http.MethodGet, "/customers", q, nil, &out)
	return out, err
}

// All pages through every customer.
func (a CustomersAPI) All(ctx context.Context) ([]customers.Customer, error) {
	var all []customers.Customer
	for page := 1; ; page++ {
		res, err := a.List(ctx, Page{Page: page, Limit: 200}, "")
		if err != nil {
			return nil, err
		}
		all = append(all, res.Customers...)
		if page >= res.Pagination.TotalPages || len(res.Customers) == 0 {
			return all, nil
		}
	}
}

func (a CustomersAPI) Get(ctx context.Context, id int64) (customers.Customer, error) {
	var out customers.Customer
	err := a.c.do(ctx, http.MethodGet, idPath("/customers", id), nil, nil, &out)
	return out, err
}

func (a CustomersAPI) Create(ctx context.Context, req customers.CreateCustomerRequest) (customers.Customer, error) {
	var out customers.Customer
	err := a.c.do(ctx, http.MethodPost, "/customers", nil, req, &out)
	return out, err
}

func (a CustomersAPI) Update(ctx context.Context, id int64, req customers.UpdateCustomerRequest) (customers.Customer, error) {
	var out customers.Customer
	err := a.c.do(ctx, http.MethodPut, idPath("/customers", id), nil, req, &out)
	return out, err
}

func (a CustomersAPI) Delete(ctx context.Context, id int64) error {
	return a.c.do(ctx, http.MethodDelete, idPath("/customers", id), nil, nil, nil)
}
