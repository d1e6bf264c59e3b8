package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/feedmill/feedmill/internal/invoices"
)

func writeData(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data}))
}

func TestBearerHeaderAndEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "/api/auth/me", r.URL.Path)
		writeData(t, w, http.StatusOK, map[string]any{"id": 7, "username": "admin", "is_active": true})
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", StaticToken("tok-1"))
	user, err := c.Auth().Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.Equal(t, "admin", user.Username)
}

func TestErrorMessageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/invoices":
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error":"insufficient stock for Starter"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Invoices().Create(context.Background(), invoices.CreateRequest{Currency: "SYP"}, "k1")
	require.Error(t, err)
	require.Equal(t, "insufficient stock for Starter", err.Error())
	require.True(t, IsConflict(err))

	_, err = c.Debts().List(context.Background())
	require.EqualError(t, err, "HTTP error! status: 502")
	require.False(t, IsUnauthorized(err))
}

func TestIdempotencyKeyAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments":
			require.Equal(t, "pay-1", r.Header.Get("Idempotency-Key"))
			var req invoices.PaymentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.CustomerID)
			require.True(t, req.Amount.Equal(decimal.NewFromInt(2500)))
			writeData(t, w, http.StatusCreated, map[string]any{"payments": []any{}, "total": 2500})
		case "/invoices":
			require.Equal(t, "3", r.URL.Query().Get("customer"))
			require.Equal(t, "true", r.URL.Query().Get("open"))
			require.Equal(t, "2", r.URL.Query().Get("page"))
			writeData(t, w, http.StatusOK, map[string]any{"invoices": []any{}, "pagination": map[string]any{"page": 2}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	customer := int64(3)
	res, err := c.Debts().Pay(context.Background(), invoices.PaymentRequest{CustomerID: &customer, Amount: decimal.NewFromInt(2500)}, "pay-1")
	require.NoError(t, err)
	require.True(t, res.Total.Equal(decimal.NewFromInt(2500)))

	list, err := c.Invoices().List(context.Background(), InvoiceQuery{Page: Page{Page: 2}, CustomerID: 3, OpenOnly: true})
	require.NoError(t, err)
	require.Equal(t, 2, list.Pagination.Page)
}

func TestAdminBackupAndRestore(t *testing.T) {
	snapshot := `{"version":1,"feeds":[]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/backup":
			w.Header().Set("Content-Disposition", `attachment; filename="backup_2026-10-15.json"`)
			_, _ = io.WriteString(w, snapshot)
		case "/admin/restore":
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			require.Equal(t, "backup_2026-10-15.json", header.Filename)
			raw, err := io.ReadAll(file)
			require.NoError(t, err)
			require.JSONEq(t, snapshot, string(raw))
			writeData(t, w, http.StatusOK, RestoreSummary{Version: 1, Feeds: 2})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	var buf bytes.Buffer
	name, err := c.Admin().Backup(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, "backup_2026-10-15.json", name)
	require.Equal(t, snapshot, buf.String())

	summary, err := c.Admin().Restore(context.Background(), name, &buf)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Feeds)
}
