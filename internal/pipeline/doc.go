// Package pipeline orchestrates one daily ranking run.
//
// A run:
//   - Fails pre-flight with ErrMissingCredential before any network call
//   - Lists the universe (fatal on failure or when empty)
//   - Prepares the valuer when it needs per-run data (Polygon closes)
//   - Enriches with bounded concurrency, tolerating per-item failure
//   - Ranks, gates on the minimum accepted length, and writes the snapshot
//
// Nothing is written unless every earlier stage succeeded, so a failed run
// leaves the previous snapshot untouched. Runs on one Runner are serialized.
package pipeline
