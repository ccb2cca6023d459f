// Package source adapts upstream API clients to the pipeline.
//
// Each source provides:
//   - a universe.Pager over the vendor's symbol listing
//   - an enrich.Valuer returning market capitalisation in USD
//
// Polygon derives valuation as previous close × shares outstanding and needs
// Prepare to load the grouped daily closes once per run. Finnhub reports
// market capitalisation directly, in millions.
//
// Upstream payloads vary by plan and API revision; fields are checked for
// presence and sign before use.
package source
