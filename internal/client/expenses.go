package client

import (
	"context"
	"net/http"
	"time"

	"github.com/feedmill/feedmill/internal/expenses"
	"github.com/feedmill/feedmill/internal/shared"
)

// ExpenseList is the data of GET /expenses.
type ExpenseList struct {
	Expenses   []expenses.Expense `json:"expenses"`
	Pagination shared.Pagination  `json:"pagination"`
}

// ExpenseQuery filters GET /expenses.
type ExpenseQuery struct {
	Page
	Type expenses.Type
	From time.Time
	To   time.Time
}

// ExpensesAPI wraps /expenses.
type ExpensesAPI struct{ c *Client }

// Expenses returns the expenses facade.
func (c *Client) Expenses() ExpensesAPI { return ExpensesAPI{c} }

func (a ExpensesAPI) List(ctx context.Context, f ExpenseQuery) (ExpenseList, error) {
	q := f.Page.query()
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.Format(time.DateOnly))
	}
	var out ExpenseList
	err := a.c.do(ctx, http.MethodGet, "/expenses", q, nil, &out)
	return out, err
}

func (a ExpensesAPI) Create(ctx context.Context, in expenses.Input) (expenses.Expense, error) {
	var out expenses.Expense
	err := a.c.do(ctx, http.MethodPost, "/expenses", nil, in, &out)
	return out, err
}

func (a ExpensesAPI) Update(ctx context.Context, id int64, in expenses.Input) (expenses.Expense, error) {
	var out expenses.Expense
	err := a.c.do(ctx, http.MethodPut, idPath("/expenses", id), nil, in, &out)
	return out, err
}

func (a ExpensesAPI) Delete(ctx context.Context, id int64) error {
	return a.c.do(ctx, http.MethodDelete, idPath("/expenses", id), nil, nil, nil)
}
