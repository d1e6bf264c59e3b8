package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	creates   atomic.Int32
	listQuery atomic.Value
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := func(status int, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}
	if r.URL.Path == "/api/auth/login" {
		reply(http.StatusOK, map[string]any{"id": 1, "username": "admin", "token": "tok"})
		return
	}
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid or expired token"}`))
		return
	}
	switch r.URL.Path {
	case "/api/auth/me":
		reply(http.StatusOK, map[string]any{"id": 1, "username": "admin"})
	case "/api/feeds":
		reply(http.StatusOK, map[string]any{
			"feeds": []any{map[string]any{
				"id": 1, "name": "Starter", "quantity_kg": 100,
				"prices": []any{map[string]any{"price_type": "retail", "currency": "SYP", "price_per_kg": 5000}},
			}},
			"pagination": map[string]any{"page": 1, "limit": 200, "total": 1, "total_pages": 1},
		})
	case "/api/customers":
		reply(http.StatusOK, map[string]any{
			"customers":  []any{map[string]any{"id": 3, "full_name": "Abu Khaled"}},
			"pagination": map[string]any{"page": 1, "limit": 200, "total": 1, "total_pages": 1},
		})
	case "/api/invoices":
		if r.Method == http.MethodPost {
			f.creates.Add(1)
			reply(http.StatusOK, map[string]any{"invoices": []any{}, "pagination": map[string]any{"page": 1}})
			return
		}
		f.listQuery.Store(r.URL.RawQuery)
		reply(http.StatusOK, map[string]any{
			"invoices": []any{map[string]any{
				"id": 7, "customer_id": 3, "customer_name": "Abu Khaled", "currency": "SYP",
				"created_at": "2026-03-02T10:00:00Z", "total_amount": 250000, "total_paid": 100000, "remaining": 150000,
			}},
			"pagination": map[string]any{"page": 1, "limit": 20, "total": 1, "total_pages": 1},
		})
	case "/api/dashboard/charts":
		reply(http.StatusOK, map[string]any{
			"months": 2,
			"salesChart": []any{
				map[string]any{"month": "2026-02", "currency": "SYP", "value": 1250000},
				map[string]any{"month": "2026-02", "currency": "USD", "value": 0},
				map[string]any{"month": "2026-03", "currency": "SYP", "value": 0},
				map[string]any{"month": "2026-03", "currency": "USD", "value": 40},
			},
			"productionChart": []any{
				map[string]any{"month": "2026-02", "value": 1500},
				map[string]any{"month": "2026-03", "value": 0},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	t.Setenv("FEEDCTL_API_URL", srv.URL+"/api")
	t.Setenv("FEEDCTL_HOME", t.TempDir())
	t.Setenv("FEEDCTL_TIMEOUT", "5s")
	return api
}

func TestLoginWhoamiLogout(t *testing.T) {
	setup(t)

	_, err := run(t, "whoami")
	require.ErrorContains(t, err, "not logged in")

	out, err := run(t, "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)
	require.Contains(t, out, "logged in as admin")

	out, err = run(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "admin (id 1)")

	_, err = run(t, "logout")
	require.NoError(t, err)
	_, err = run(t, "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestInvoiceCreateRejectedLocally(t *testing.T) {
	api := setup(t)
	_, err := run(t, "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)

	_, err = run(t, "invoices", "create", "--customer", "3", "--line", "1:150")
	require.ErrorContains(t, err, "exceeds available")
	require.Zero(t, api.creates.Load())

	_, err = run(t, "invoices", "create", "--line", "1:10")
	require.ErrorContains(t, err, "select a customer")
	require.Zero(t, api.creates.Load())
}

func TestSettingsSetAndShow(t *testing.T) {
	setup(t)
	_, err := run(t, "settings", "set", "--currency", "USD", "--rate", "14500")
	require.NoError(t, err)

	out, err := run(t, "settings", "show")
	require.NoError(t, err)
	require.Contains(t, out, "USD")
	require.Contains(t, out, "14500")

	_, err = run(t, "settings", "set", "--rate", "0")
	require.ErrorContains(t, err, "exchange rate must be greater than zero")
}

func TestInvoiceListAndMissingInvoice(t *testing.T) {
	api := setup(t)
	_, err := run(t, "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)

	out, err := run(t, "invoices", "list", "--customer", "3", "--open")
	require.NoError(t, err)
	require.Contains(t, out, "Abu Khaled")
	require.Contains(t, out, "2026-03-02")
	require.Contains(t, out, "page 1 of 1 (1 invoices)")
	query, _ := api.listQuery.Load().(string)
	require.Contains(t, query, "customer=3")
	require.Contains(t, query, "open=true")

	_, err = run(t, "invoices", "show", "99")
	require.EqualError(t, err, "invoice 99 does not exist")
}

func TestReportsCharts(t *testing.T) {
	setup(t)
	_, err := run(t, "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)

	out, err := run(t, "reports", "charts", "--months", "2")
	require.NoError(t, err)
	require.Contains(t, out, "MONTH")
	require.Contains(t, out, "2026-02")
	require.Contains(t, out, "1,500 kg")
	require.Contains(t, out, "2026-03")
}
