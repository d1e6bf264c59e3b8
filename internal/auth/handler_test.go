package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedmill/feedmill/internal/auth"
	"github.com/feedmill/feedmill/internal/shared"
	_ "github.com/feedmill/feedmill/testing"
)

type stubRepo struct {
	users map[string]*auth.User
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]*auth.User{}}
}

func (s *stubRepo) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, username, hash string) (*auth.User, error) {
	if _, ok := s.users[strings.ToLower(username)]; ok {
		return nil, auth.ErrUsernameTaken
	}
	u := &auth.User{ID: int64(len(s.users) + 1), Username: username, PasswordHash: hash, IsActive: true}
	s.users[strings.ToLower(username)] = u
	return u, nil
}

func seeded(t *testing.T) *stubRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newStubRepo()
	repo.users["admin"] = &auth.User{ID: 1, Username: "admin", PasswordHash: string(hash), IsActive: true}
	repo.users["retired"] = &auth.User{ID: 2, Username: "retired", PasswordHash: string(hash), IsActive: false}
	return repo
}

func newRouter(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		h.MountRoutes(r)
		r.With(h.RequireBearer).Get("/me", h.Me)
	})
	return r
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginAndMe(t *testing.T) {
	svc := auth.NewService(seeded(t), "test-secret", time.Hour)
	router := newRouter(auth.NewHandler(nil, svc))

	rec := post(router, "/auth/login", `{"username":"admin","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"admin"`)

	token, err := svc.IssueToken(auth.User{ID: 1, Username: "admin"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	require.Contains(t, me.Body.String(), `"id":1`)
	require.NotContains(t, me.Body.String(), "password")
}

func TestLoginInvalidCredentials(t *testing.T) {
	router := newRouter(auth.NewHandler(nil, auth.NewService(seeded(t), "test-secret", time.Hour)))

	for _, body := range []string{
		`{"username":"admin","password":"wrong-pass"}`,
		`{"username":"nobody","password":"correct-horse"}`,
		`{"username":"retired","password":"correct-horse"}`,
	} {
		rec := post(router, "/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code, body)
		require.JSONEq(t, `{"error":"invalid username or password"}`, rec.Body.String())
	}

	rec := post(router, "/auth/login", `{"username":"admin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireBearerRejectsBadTokens(t *testing.T) {
	svc := auth.NewService(seeded(t), "test-secret", time.Minute)
	router := newRouter(auth.NewHandler(nil, svc))

	other := auth.NewService(seeded(t), "other-secret", time.Minute)
	forged, err := other.IssueToken(auth.User{ID: 1, Username: "admin"})
	require.NoError(t, err)

	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer " + forged} {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}

	_, err = svc.ParseToken(forged)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCreateUser(t *testing.T) {
	svc := auth.NewService(newStubRepo(), "test-secret", 0)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "  ", "long-enough")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.CreateUser(ctx, "clerk", "short")
	require.ErrorContains(t, err, "at least 8")

	u, err := svc.CreateUser(ctx, " clerk ", "long-enough")
	require.NoError(t, err)
	require.Equal(t, "clerk", u.Username)
	_, err = svc.CreateUser(ctx, "clerk", "long-enough")
	require.ErrorIs(t, err, shared.ErrConflict)

	user, err := svc.Authenticate(ctx, "clerk", "long-enough")
	require.NoError(t, err)
	require.Equal(t, u.ID, user.ID)
}
