package api

import (
	"context"
	"fmt"
	"net/url"
)

// DefaultWikipediaURL is the English Wikipedia MediaWiki API.
const DefaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

// ParsePage fetches the rendered HTML of a wiki page.
func (c *Client) ParsePage(ctx context.Context, page string) (string, error) {
	query := url.Values{}
	query.Set("action", "parse")
	query.Set("page", page)
	query.Set("prop", "text")
	query.Set("format", "json")
	query.Set("formatversion", "2")

	var resp ParseResponse
	if err := c.get(ctx, "", query, &resp); err != nil {
		return "", fmt.Errorf("parse page %s: %w", page, err)
	}
	if resp.Parse.Text == "" {
		return "", fmt.Errorf("parse page %s: empty html", page)
	}

	return resp.Parse.Text, nil
}
