package api

import (
	"context"
	"net/http"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         ledger.User `json:"user"`
}

// Login exchanges credentials for a session and stores its tokens.
func (c *Client) Login(ctx context.Context, creds Credentials) (ledger.User, error) {
	body, err := c.call(ctx, http.MethodPost, "/auth/login", nil, creds)
	if err != nil {
		return ledger.User{}, err
	}
	resp := AdaptSingle[loginResponse](body).Data
	if resp.AccessToken == "" {
		return ledger.User{}, &Error{Message: "Login response carried no token", StatusCode: http.StatusBadGateway}
	}
	if err := c.tokens.Save(ctx, Tokens{Access: resp.AccessToken, Refresh: resp.RefreshToken}); err != nil {
		return ledger.User{}, err
	}
	return resp.User, nil
}

// Logout ends the session on the backend and clears the local tokens even
// when the backend call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if clearErr := c.tokens.Clear(ctx); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (ledger.User, error) {
	body, err := c.call(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return ledger.User{}, err
	}
	return AdaptSingle[ledger.User](body).Data, nil
}

// EnsureSession logs in with creds unless a session is already stored.
func (c *Client) EnsureSession(ctx context.Context, creds Credentials) error {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if !tokens.Empty() {
		return nil
	}
	if creds.Username == "" {
		return ErrSessionExpired
	}
	_, err = c.Login(ctx, creds)
	return err
}
