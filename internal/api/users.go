package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// UserInput creates a staff account.
type UserInput struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	FullName string      `json:"fullName,omitempty"`
	Role     ledger.Role `json:"role"`
}

// ListUsers returns every account.
func (c *Client) ListUsers(ctx context.Context) ([]ledger.User, error) {
	body, err := c.call(ctx, http.MethodGet, "/users", nil, nil)
	if err != nil {
		return nil, err
	}
	return AdaptFlatList[ledger.User](body).Data, nil
}

// CreateUser adds an account. The account cap is checked first so the
// caller gets a field error instead of a backend rejection.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (ledger.User, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return ledger.User{}, err
	}
	if len(users) >= ledger.MaxUsers {
		return ledger.User{}, &Error{
			Message:    fmt.Sprintf("A maximum of %d users is allowed", ledger.MaxUsers),
			StatusCode: http.StatusUnprocessableEntity,
			Errors:     map[string]string{"username": "User limit reached"},
		}
	}
	body, err := c.call(ctx, http.MethodPost, "/users", nil, in)
	if err != nil {
		return ledger.User{}, err
	}
	return AdaptSingle[ledger.User](body).Data, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
	return err
}
