package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	stored   Snapshot
	restored int
}

func (m *memoryRepo) Export(context.Context) (Snapshot, error) { return m.stored, nil }

func (m *memoryRepo) Restore(_ context.Context, snap Snapshot) error {
	m.stored = snap
	m.restored++
	return nil
}

type bumpCounter struct{ n int }

func (b *bumpCounter) Bump(context.Context) error { b.n++; return nil }

type stubEnqueuer struct{ calls int }

func (s *stubEnqueuer) EnqueueBackupSnapshot(context.Context) (string, error) {
	s.calls++
	return "task-1", nil
}

func sampleSnapshot() Snapshot {
	customer := int64(1)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return Snapshot{
		Version:   FormatVersion,
		Feeds:     []FeedRow{{ID: 1, Name: "Corn", QuantityKg: decimal.NewFromInt(100), CreatedAt: at, UpdatedAt: at}},
		Customers: []CustomerRow{{ID: 1, FullName: "Abu Ahmad", CreatedAt: at, UpdatedAt: at}},
		Invoices:  []InvoiceRow{{ID: 1, CustomerID: &customer, Currency: "SYP", CreatedAt: at, UpdatedAt: at}},
		InvoiceLines: []LineRow{{
			ID: 1, InvoiceID: 1, Position: 1, FeedID: 1,
			QuantityKg: decimal.NewFromInt(10), PriceType: "retail", UnitPrice: decimal.NewFromInt(2500),
		}},
		Payments: []PaymentRow{{ID: 1, InvoiceID: 1, Amount: decimal.NewFromInt(5000), Currency: "SYP", PaymentMethod: "cash", CreatedAt: at}},
	}
}

func encode(t *testing.T, snap Snapshot) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestRestoreValidatesSnapshot(t *testing.T) {
	repo := &memoryRepo{}
	bumps := &bumpCounter{}
	svc := NewService(repo, bumps)
	ctx := context.Background()

	old := sampleSnapshot()
	old.Version = 99
	_, err := svc.Restore(ctx, encode(t, old))
	require.ErrorContains(t, err, "unsupported backup version 99")

	dangling := sampleSnapshot()
	dangling.Payments[0].InvoiceID = 7
	_, err = svc.Restore(ctx, encode(t, dangling))
	require.ErrorContains(t, err, "payment 1 references unknown invoice 7")

	overpaid := sampleSnapshot()
	overpaid.Payments[0].Amount = decimal.NewFromInt(30000)
	_, err = svc.Restore(ctx, encode(t, overpaid))
	require.ErrorContains(t, err, "paid beyond its total")

	_, err = svc.Restore(ctx, strings.NewReader("not json"))
	require.ErrorContains(t, err, "not valid JSON")
	require.Zero(t, repo.restored)
	require.Zero(t, bumps.n)

	snap, err := svc.Restore(ctx, encode(t, sampleSnapshot()))
	require.NoError(t, err)
	require.Len(t, snap.Invoices, 1)
	require.Equal(t, 1, repo.restored)
	require.Equal(t, 1, bumps.n)
}

func TestSaveToDirWritesReadableSnapshot(t *testing.T) {
	repo := &memoryRepo{stored: sampleSnapshot()}
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC) }
	dir := filepath.Join(t.TempDir(), "backups")

	first, err := svc.SaveToDir(context.Background(), dir)
	require.NoError(t, err)
	second, err := svc.SaveToDir(context.Background(), dir)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.True(t, strings.HasPrefix(filepath.Base(first), "backup_2025-04-02_"))

	f, err := os.Open(first)
	require.NoError(t, err)
	defer f.Close()
	restored, err := NewService(&memoryRepo{}, nil).Restore(context.Background(), f)
	require.NoError(t, err)
	require.Equal(t, "Corn", restored.Feeds[0].Name)

	_, err = svc.SaveToDir(context.Background(), "")
	require.Error(t, err)
}

func newRouter(svc *Service, enq Enqueuer) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, svc, enq).MountRoutes(r)
	return r
}

func TestHandlerDownloadAndRestore(t *testing.T) {
	repo := &memoryRepo{stored: sampleSnapshot()}
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2025, 5, 9, 12, 0, 0, 0, time.UTC) }
	router := newRouter(svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/backup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="backup_2025-05-09.json"`, rec.Header().Get("Content-Disposition"))
	downloaded := rec.Body.Bytes()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "backup_2025-05-09.json")
	require.NoError(t, err)
	_, err = part.Write(downloaded)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/restore", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"data":{"version":1,"feeds":1,"customers":1,"invoices":1,"payments":1,"expenses":0}}`, rec.Body.String())
	require.Equal(t, 1, repo.restored)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/restore", strings.NewReader("")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"file is required"}`, rec.Body.String())
}

func TestHandlerSchedule(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	rec := httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backup/schedule", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	enq := &stubEnqueuer{}
	rec = httptest.NewRecorder()
	newRouter(svc, enq).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backup/schedule", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"success":true,"data":{"task_id":"task-1"}}`, rec.Body.String())
	require.Equal(t, 1, enq.calls)
}
