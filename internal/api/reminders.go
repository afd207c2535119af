package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// ReminderInput logs a collection reminder.
type ReminderInput struct {
	CustomerID string `json:"customerId"`
	PaymentID  string `json:"paymentId,omitempty"`
	Message    string `json:"message"`
	Channel    string `json:"channel,omitempty"`
}

// ListReminders returns reminders, optionally for one customer.
func (c *Client) ListReminders(ctx context.Context, customerID string) ([]ledger.Reminder, error) {
	var q url.Values
	if customerID != "" {
		q = url.Values{"customerId": {customerID}}
	}
	body, err := c.call(ctx, http.MethodGet, "/reminders", q, nil)
	if err != nil {
		return nil, err
	}
	return AdaptFlatList[ledger.Reminder](body).Data, nil
}

// CreateReminder logs a reminder.
func (c *Client) CreateReminder(ctx context.Context, in ReminderInput, opts ...RequestOption) (ledger.Reminder, error) {
	body, err := c.call(ctx, http.MethodPost, "/reminders", nil, in, opts...)
	if err != nil {
		return ledger.Reminder{}, err
	}
	return AdaptSingle[ledger.Reminder](body).Data, nil
}
