package feeds

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, NewService(newMemoryRepo(), nil)).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndPrices(t *testing.T) {
	h := newTestRouter()

	rec := do(t, h, http.MethodPost, "/", `{"name":"ذرة صفراء","quantity_kg":5000}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Success bool `json:"success"`
		Data    Feed `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.Equal(t, int64(1), created.Data.ID)

	rec = do(t, h, http.MethodPut, "/1/prices", `{"prices":[{"price_type":"retail","currency":"SYP","price_per_kg":2500}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"data":[{"price_type":"retail","currency":"SYP","price_per_kg":2500}]}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/1/prices", `{"prices":[{"price_type":"bulk","currency":"SYP","price_per_kg":1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/42", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"feed not found"}`, rec.Body.String())
}

func TestHandlerRejectsBadBodies(t *testing.T) {
	h := newTestRouter()

	rec := do(t, h, http.MethodPost, "/", ``)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/", `{"name":"x","unknown":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
