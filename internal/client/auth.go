package client

import (
	"context"
	"net/http"

	"github.com/feedmill/feedmill/internal/auth"
)

// AuthAPI wraps /auth.
type AuthAPI struct{ c *Client }

// Auth returns the auth facade.
func (c *Client) Auth() AuthAPI { return AuthAPI{c} }

// Login exchanges credentials for a bearer token.
func (a AuthAPI) Login(ctx context.Context, username, password string) (auth.LoginResult, error) {
	var out auth.LoginResult
	err := a.c.do(ctx, http.MethodPost, "/auth/login", nil, auth.LoginRequest{Username: username, Password: password}, &out)
	return out, err
}

// Me returns the user behind the current token.
func (a AuthAPI) Me(ctx context.Context) (auth.User, error) {
	var out auth.User
	err := a.c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}
