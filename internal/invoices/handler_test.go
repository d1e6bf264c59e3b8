package invoices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestHandlerUpdateAcceptsDashboardBody(t *testing.T) {
	svc, repo, _ := newTestService()
	inv, err := svc.Create(context.Background(), roundTripRequest(), "")
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)

	// The edit form re-sends the whole create body with initialPayment reset to 0.
	body := `{"customerId":1,"isWalkIn":false,"currency":"SYP","initialPayment":0,"items":[
		{"feedId":1,"quantity_kg":12,"price_type":"retail","unit_price":2500},
		{"feedId":2,"quantity_kg":5,"price_type":"retail","unit_price":4000}]}`
	req := httptest.NewRequest(http.MethodPut, "/"+itoa(inv.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool    `json:"success"`
		Data    Invoice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.True(t, resp.Data.TotalAmount.Equal(d("50000")))
	require.True(t, resp.Data.TotalPaid.Equal(d("20000")), "initial payment on edit must not touch payments")
	require.Len(t, resp.Data.Payments, 1)
	require.True(t, repo.state.feeds[1].AvailableKg.Equal(d("4988")))

	req = httptest.NewRequest(http.MethodPut, "/"+itoa(inv.ID), strings.NewReader(`{"items":[],"discount":5}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown field")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
