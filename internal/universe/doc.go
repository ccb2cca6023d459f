// Package universe implements the Paginated Lister.
//
// The Lister:
//   - Requests the first page, then follows the upstream cursor strictly in order
//   - Pauses between pages to stay under upstream rate limits
//   - Stops when upstream reports no further page or MaxPages is reached
//   - Emits one entry per record with a non-empty identifier
//   - Fails with ErrEmptyUniverse when nothing was produced
//
// Entries are not deduplicated here; the ranker dedupes by symbol.
package universe
