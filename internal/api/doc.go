// Package api provides the upstream REST clients for universe and valuation data.
//
// Supported upstreams:
//   - Polygon: https://api.polygon.io (tickers, grouped daily bars, financials)
//   - Finnhub: https://finnhub.io/api/v1 (symbol list, company profile)
//   - MediaWiki parse API for index constituents (no credential)
//
// Every request passes through a shared rate limiter, a circuit breaker, and
// the backoff executor. The credential is an opaque string appended as a
// query parameter; cursors returned by upstream are never rewritten beyond that.
package api
