package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := New(context.Background(), Config{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := srv.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	opt := Config{Addr: srv.Addr(), DB: 2}.AsynqOpt()
	require.Equal(t, srv.Addr(), opt.Addr)
	require.Equal(t, 2, opt.DB)
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := New(context.Background(), Config{Addr: addr})
	require.ErrorContains(t, err, "platform/cache: ping")
}
