// Package server exposes the read API over the snapshot store.
//
// Routes:
//   - GET /api/top500.json     latest snapshot entries, verbatim
//   - GET /api/movers.json     top-K rank movers (?top=K)
//   - GET /api/changes.json    entered and exited symbols
//   - GET /api/snapshots.json  persisted snapshot dates
//   - GET /api/sp500.json      S&P 500 constituents (cached)
//   - GET /health              liveness
//   - GET /metrics             Prometheus exposition
//
// Snapshot views are computed from the store on each request.
package server
