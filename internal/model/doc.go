// Package model defines shared data types used across the ranking pipeline.
//
// Conventions:
//   - Symbols: upstream ticker strings, compared byte-for-byte
//   - Valuations: market capitalisation in US dollars (float64, finite, > 0)
//   - Ranks: dense and 1-based within a snapshot
//   - Dates: calendar dates rendered as YYYY-MM-DD, so lexical order is chronological
package model
