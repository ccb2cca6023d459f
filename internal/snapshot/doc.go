// Package snapshot implements the Snapshot Store.
//
// One file per calendar date, named YYYY-MM-DD.json, holding the ranked
// entries as a JSON array. File names sort lexically in date order, so
// "latest" and "previous" are the last two names in the directory.
//
// Writes go to a temp file in the same directory and are renamed into
// place; a failed run never leaves a partial snapshot behind.
package snapshot
