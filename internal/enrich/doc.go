// Package enrich implements the Enrichment Pool.
//
// The Enrichment Pool:
//   - Truncates the universe to MaxEnriched entries
//   - Runs exactly Concurrency workers over a shared atomic index
//   - Keeps only finite, positive valuations
//   - Drops any entry whose lookup fails without aborting the batch
//   - Pauses Delay after every attempt as a global throughput throttle
package enrich
