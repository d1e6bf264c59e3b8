package customers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/feedmill/feedmill/internal/shared"
)

type memoryRepo struct {
	customers map[int64]Customer
	invoices  map[int64]int
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]Customer), invoices: make(map[int64]int)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.customers[id]
	return ok, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var out []Customer
	for id := int64(1); id <= r.nextID; id++ {
		if c, ok := r.customers[id]; ok {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Update(ctx context.Context, c Customer) error {
	if _, ok := r.customers[c.ID]; !ok {
		return ErrNotFound
	}
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(r.customers, id)
	return nil
}

func (r *memoryRepo) InvoiceCount(ctx context.Context, id int64) (int, error) {
	return r.invoices[id], nil
}

func TestCustomerLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCustomerRequest{FullName: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)

	c, err := svc.Create(ctx, CreateCustomerRequest{FullName: "أبو محمد", Phone: "0933 000 111"})
	require.NoError(t, err)
	require.Equal(t, int64(1), c.ID)

	addr := "حماة - طريق حلب"
	updated, err := svc.Update(ctx, c.ID, UpdateCustomerRequest{Address: &addr})
	require.NoError(t, err)
	require.Equal(t, "أبو محمد", updated.FullName)
	require.Equal(t, addr, updated.Address)

	empty := ""
	_, err = svc.Update(ctx, c.ID, UpdateCustomerRequest{FullName: &empty})
	require.ErrorIs(t, err, shared.ErrValidation)

	repo.invoices[c.ID] = 2
	require.ErrorIs(t, svc.Delete(ctx, c.ID), shared.ErrConflict)

	repo.invoices[c.ID] = 0
	require.NoError(t, svc.Delete(ctx, c.ID))
	require.ErrorIs(t, svc.Delete(ctx, c.ID), ErrNotFound)
}

func TestHandlerDeleteWithInvoicesIsConflict(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	c, err := svc.Create(context.Background(), CreateCustomerRequest{FullName: "سامر"})
	require.NoError(t, err)
	repo.invoices[c.ID] = 1

	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/1", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"customer has invoices and cannot be deleted"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"1"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
