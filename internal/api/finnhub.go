package api

import (
	"context"
	"fmt"
	"net/url"
)

// DefaultFinnhubURL is the production Finnhub REST endpoint.
const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// StockSymbols fetches every symbol listed on exchange. Finnhub does not paginate it.
func (c *Client) StockSymbols(ctx context.Context, exchange string) ([]FinnhubSymbol, error) {
	query := url.Values{}
	query.Set("exchange", exchange)

	var resp []FinnhubSymbol
	if err := c.get(ctx, "/stock/symbol", query, &resp); err != nil {
		return nil, fmt.Errorf("get stock symbols %s: %w", exchange, err)
	}

	return resp, nil
}

// CompanyProfile fetches the profile for symbol.
func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*FinnhubProfile, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var resp FinnhubProfile
	if err := c.get(ctx, "/stock/profile2", query, &resp); err != nil {
		return nil, fmt.Errorf("get profile %s: %w", symbol, err)
	}

	return &resp, nil
}
