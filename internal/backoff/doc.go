// Package backoff implements the retry executor used by every upstream call.
//
// A failure is retried only when it is transient:
//   - HTTP 429 or any 5xx status
//   - transport timeouts, connection resets/aborts, unreachable networks
//   - errors that declare themselves transient (e.g. an open circuit breaker)
//
// Everything else is terminal and returned after a single attempt. Waits honor
// a server Retry-After hint when present, otherwise grow exponentially from
// BaseDelay up to MaxDelay, and are optionally jittered by ±25%.
package backoff
