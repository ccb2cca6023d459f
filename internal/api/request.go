package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rickgao/top500/internal/backoff"
	"github.com/rickgao/top500/internal/version"
)

// APIError represents a non-2xx response from an upstream API.
type APIError struct {
	StatusCode        int
	Message           string
	Body              []byte
	RetryAfterSeconds int // Parsed Retry-After header; 0 when absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream api error %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus implements backoff.StatusError.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// RetryAfter implements backoff.RetryAfterError.
func (e *APIError) RetryAfter() time.Duration {
	return time.Duration(e.RetryAfterSeconds) * time.Second
}

// breakerOpenError marks requests rejected by an open circuit as transient,
// so the executor waits and probes again instead of dropping the item.
type breakerOpenError struct {
	err error
}

func (e *breakerOpenError) Error() string   { return "circuit open: " + e.err.Error() }
func (e *breakerOpenError) Unwrap() error   { return e.err }
func (e *breakerOpenError) Transient() bool { return true }

// doRequest performs a single GET against rawURL.
func (c *Client) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode:        resp.StatusCode,
			Message:           http.StatusText(resp.StatusCode),
			Body:              body,
			RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return body, nil
}

// doGuarded runs doRequest through the circuit breaker when one is configured.
func (c *Client) doGuarded(ctx context.Context, rawURL string) ([]byte, error) {
	if c.breaker == nil {
		return c.doRequest(ctx, rawURL)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, rawURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &breakerOpenError{err: err}
		}
		return nil, err
	}
	return out.([]byte), nil
}

// fetch performs a GET with retries and returns the raw body.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return backoff.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doGuarded(ctx, rawURL)
	})
}

// get performs a GET on baseURL+path with retries and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" && c.authParam != "" {
		query.Set(c.authParam, c.apiKey)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	return c.decode(ctx, fullURL, result)
}

// GetURL fetches an absolute URL handed out by upstream (a pagination
// cursor, for example). The credential is appended; nothing else changes.
func (c *Client) GetURL(ctx context.Context, rawURL string, result any) error {
	return c.decode(ctx, c.withCredential(rawURL), result)
}

func (c *Client) decode(ctx context.Context, fullURL string, result any) error {
	body, err := c.fetch(ctx, fullURL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func (c *Client) withCredential(rawURL string) string {
	if c.apiKey == "" || c.authParam == "" {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + c.authParam + "=" + url.QueryEscape(c.apiKey)
}

// parseRetryAfter reads a delta-seconds Retry-After value.
func parseRetryAfter(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
