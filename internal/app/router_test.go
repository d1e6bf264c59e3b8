package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedmill/feedmill/internal/auth"
	"github.com/feedmill/feedmill/internal/backup"
	"github.com/feedmill/feedmill/internal/customers"
	"github.com/feedmill/feedmill/internal/expenses"
	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/invoices"
	"github.com/feedmill/feedmill/internal/observability"
	"github.com/feedmill/feedmill/internal/purchases"
	"github.com/feedmill/feedmill/internal/reports"
	"github.com/feedmill/feedmill/internal/shared"
	_ "github.com/feedmill/feedmill/testing"
)

type noUsers struct{}

func (noUsers) FindByUsername(context.Context, string) (*auth.User, error) {
	return nil, shared.ErrNotFound
}
func (noUsers) FindByID(_ context.Context, id int64) (*auth.User, error) {
	return &auth.User{ID: id, Username: "admin", IsActive: true}, nil
}
func (noUsers) Create(context.Context, string, string) (*auth.User, error) {
	return nil, shared.ErrConflict
}

func testRouter(t *testing.T) (http.Handler, *auth.Service) {
	t.Helper()
	cfg := &Config{AppEnv: "test", CORSAllowedOrigins: []string{"http://localhost:5173"}, RateLimitPerMinute: 1000}
	authSvc := auth.NewService(noUsers{}, "router-secret", time.Hour)
	router := NewRouter(RouterParams{
		Config:          cfg,
		AuthHandler:     auth.NewHandler(nil, authSvc),
		FeedHandler:     feeds.NewHandler(nil, nil),
		CustomerHandler: customers.NewHandler(nil, nil),
		PurchaseHandler: purchases.NewHandler(nil, nil),
		InvoiceHandler:  invoices.NewHandler(nil, nil),
		ExpenseHandler:  expenses.NewHandler(nil, nil),
		ReportHandler:   reports.NewHandler(nil, nil),
		BackupHandler:   backup.NewHandler(nil, nil, nil),
		Metrics:         observability.NewMetrics(),
	})
	return router, authSvc
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	router, authSvc := testRouter(t)

	for _, path := range []string{"/api/feeds", "/api/invoices", "/api/debts", "/api/customers/1/debt", "/api/admin/backup", "/api/dashboard/summary", "/api/dashboard/charts"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
	}

	token, err := authSvc.IssueToken(auth.User{ID: 7, Username: "admin"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":7`)
}

func TestHealthNotFoundAndCORS(t *testing.T) {
	router, _ := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"route not found"}`, rec.Body.String())

	preflight := httptest.NewRequest(http.MethodOptions, "/api/invoices", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, preflight)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	foreign := httptest.NewRequest(http.MethodOptions, "/api/invoices", nil)
	foreign.Header.Set("Origin", "http://evil.example")
	foreign.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, foreign)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("LOW_STOCK_THRESHOLD_KG", "250.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "250.5", cfg.LowStockThreshold.String())
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, "feedmill-worker", cfg.Pool("worker").ApplicationName)
	require.Equal(t, int32(10), cfg.Pool("api").MaxConns)
	require.Equal(t, cfg.RedisAddr, cfg.Redis().AsynqOpt().Addr)

	t.Setenv("APP_ENV", "production")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "at least 32 characters")
}
