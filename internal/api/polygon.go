package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultPolygonURL is the production Polygon REST endpoint.
const DefaultPolygonURL = "https://api.polygon.io"

// ListTickers fetches one page of active reference tickers.
// With a cursor set, the cursor URL is followed verbatim.
func (c *Client) ListTickers(ctx context.Context, opts GetTickersOptions) (*TickersResponse, error) {
	var resp TickersResponse

	if opts.Cursor != "" {
		if err := c.GetURL(ctx, opts.Cursor, &resp); err != nil {
			return nil, fmt.Errorf("get tickers page: %w", err)
		}
		return &resp, nil
	}

	query := url.Values{}
	query.Set("active", "true")
	query.Set("market", orDefault(opts.Market, "stocks"))
	query.Set("locale", orDefault(opts.Locale, "us"))
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	if err := c.get(ctx, "/v3/reference/tickers", query, &resp); err != nil {
		return nil, fmt.Errorf("get tickers: %w", err)
	}

	return &resp, nil
}

// GroupedDaily fetches the adjusted daily bars of every US stock for date (YYYY-MM-DD).
func (c *Client) GroupedDaily(ctx context.Context, date string) (*GroupedDailyResponse, error) {
	query := url.Values{}
	query.Set("adjusted", "true")

	var resp GroupedDailyResponse
	if err := c.get(ctx, "/v2/aggs/grouped/locale/us/market/stocks/"+date, query, &resp); err != nil {
		return nil, fmt.Errorf("get grouped daily %s: %w", date, err)
	}

	return &resp, nil
}

// Financials fetches the most recent quarterly financials record for ticker.
func (c *Client) Financials(ctx context.Context, ticker string) (*FinancialsResponse, error) {
	query := url.Values{}
	query.Set("ticker", ticker)
	query.Set("timeframe", "quarterly")
	query.Set("limit", "1")

	var resp FinancialsResponse
	if err := c.get(ctx, "/vX/reference/financials", query, &resp); err != nil {
		return nil, fmt.Errorf("get financials %s: %w", ticker, err)
	}

	return &resp, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
