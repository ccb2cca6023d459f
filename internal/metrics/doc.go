// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Universe pages fetched and universe size
//   - Enrichment outcomes and upstream retries by class
//   - Snapshot size, run duration and run outcomes
//   - Timestamp of the last successful run
//
// Collectors live on a private registry owned by Metrics; nothing is
// registered globally.
package metrics
