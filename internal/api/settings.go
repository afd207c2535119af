package api

import (
	"context"
	"net/http"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// GetSettings returns the typed global settings.
func (c *Client) GetSettings(ctx context.Context) (ledger.Settings, error) {
	body, err := c.call(ctx, http.MethodGet, "/settings", nil, nil)
	if err != nil {
		return ledger.Settings{}, err
	}
	return ledger.SettingsFromPairs(AdaptFlatList[ledger.Setting](body).Data), nil
}

// UpdateSettings writes every setting and returns the stored result.
func (c *Client) UpdateSettings(ctx context.Context, s ledger.Settings) (ledger.Settings, error) {
	body, err := c.call(ctx, http.MethodPut, "/settings", nil, map[string][]ledger.Setting{"settings": s.Pairs()})
	if err != nil {
		return ledger.Settings{}, err
	}
	pairs := AdaptFlatList[ledger.Setting](body).Data
	if len(pairs) == 0 {
		return s, nil
	}
	return ledger.SettingsFromPairs(pairs), nil
}
