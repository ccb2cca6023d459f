package backoff

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy controls how many times and how long the executor waits.
type Policy struct {
	MaxAttempts int           // Total attempts including the first (default: 6)
	BaseDelay   time.Duration // First backoff step (default: 800ms)
	MaxDelay    time.Duration // Cap on a single wait (default: 20s)
	Jitter      bool          // Scale each wait by U[0.75, 1.25] (default: true)
}

// DefaultPolicy returns the standard upstream retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 6,
		BaseDelay:   800 * time.Millisecond,
		MaxDelay:    20 * time.Second,
		Jitter:      true,
	}
}

// maxShift keeps BaseDelay << attempt from overflowing.
const maxShift = 30

// Delay computes the wait before retry number attempt+1.
// hint is the server-provided Retry-After, used verbatim when positive.
// r is a uniform sample in [0, 1) used only when jitter is enabled.
func (p Policy) Delay(attempt int, hint time.Duration, r float64) time.Duration {
	var wait time.Duration
	if hint > 0 {
		wait = hint
	} else {
		shift := attempt
		if shift > maxShift {
			shift = maxShift
		}
		wait = p.BaseDelay << uint(shift)
		if wait > p.MaxDelay || wait <= 0 {
			wait = p.MaxDelay
		}
	}

	if p.Jitter {
		wait = time.Duration(float64(wait) * (0.75 + r*0.5))
	}
	return wait
}

// Executor runs fallible operations under a Policy.
type Executor struct {
	policy  Policy
	sleep   func(ctx context.Context, d time.Duration) error
	random  func() float64
	onRetry func(attempt int, wait time.Duration, err error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the context-aware sleep. Tests use it to skip waits.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// WithRandom replaces the jitter source.
func WithRandom(fn func() float64) Option {
	return func(e *Executor) {
		e.random = fn
	}
}

// WithOnRetry registers a hook invoked before every wait.
func WithOnRetry(fn func(attempt int, wait time.Duration, err error)) Option {
	return func(e *Executor) {
		e.onRetry = fn
	}
}

// New creates an Executor.
func New(policy Policy, opts ...Option) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	e := &Executor{
		policy: policy,
		sleep:  sleepContext,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do invokes op until it succeeds, fails terminally, or attempts run out.
// After the final attempt the last error is returned wrapped.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if Classify(err) != Retriable {
			return zero, err
		}
		if attempt == e.policy.MaxAttempts-1 {
			break
		}

		hint, _ := RetryAfterHint(err)
		wait := e.policy.Delay(attempt, hint, e.random())
		if e.onRetry != nil {
			e.onRetry(attempt+1, wait, err)
		}

		if err := e.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("retries exhausted after %d attempts: %w", e.policy.MaxAttempts, lastErr)
}

// Run is Do for operations without a result.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
