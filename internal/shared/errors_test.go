package shared

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("record payment: %w", Invalid("amount must be positive"))
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrNotFound)

	var typed *Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, "amount must be positive", typed.Message)
	require.ErrorIs(t, ErrIdempotencyConflict, ErrConflict)
}

func TestPageFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/feeds?page=3&limit=500", nil)
	p := PageFromRequest(req)
	require.Equal(t, 3, p.Page)
	require.Equal(t, MaxPerPage, p.Limit)
	require.Equal(t, 2*MaxPerPage, p.Offset())

	p = PageFromRequest(httptest.NewRequest("GET", "/feeds", nil))
	require.Equal(t, PageRequest{Page: 1, Limit: DefaultPerPage}, p)

	meta := NewPagination(2, 20, 41)
	require.Equal(t, 3, meta.TotalPages)
}
