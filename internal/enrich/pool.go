package enrich

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/top500/internal/backoff"
	"github.com/rickgao/top500/internal/model"
)

// Valuer resolves the valuation of one universe entry.
type Valuer interface {
	Valuation(ctx context.Context, entry model.UniverseEntry) (float64, error)
}

// ValuerFunc is a function adapter for Valuer.
type ValuerFunc func(ctx context.Context, entry model.UniverseEntry) (float64, error)

func (f ValuerFunc) Valuation(ctx context.Context, entry model.UniverseEntry) (float64, error) {
	return f(ctx, entry)
}

// Result labels the outcome of one attempt.
type Result string

const (
	ResultOK       Result = "ok"
	ResultFailed   Result = "failed"   // Lookup returned an error
	ResultRejected Result = "rejected" // Valuation was zero, negative, NaN or infinite
)

// Options holds pool configuration.
type Options struct {
	Concurrency int           // Number of workers (default: 6)
	Delay       time.Duration // Pause after every attempt, per worker (default: 150ms)
	MaxEnriched int           // Cap on entries attempted; 0 means no cap (default: 1200)
	Timeout     time.Duration // Per-entry timeout including retries; 0 disables (default: 2m)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency: 6,
		Delay:       150 * time.Millisecond,
		MaxEnriched: 1200,
		Timeout:     2 * time.Minute,
	}
}

// Stats summarises one pool run.
type Stats struct {
	Attempted int64
	Succeeded int64
	Failed    int64
	Rejected  int64
	Duration  time.Duration
}

// Pool runs valuation lookups with bounded concurrency.
type Pool struct {
	opts     Options
	logger   zerolog.Logger
	onResult func(Result)
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithResultHook registers a callback invoked once per attempted entry.
func WithResultHook(fn func(Result)) PoolOption {
	return func(p *Pool) {
		p.onResult = fn
	}
}

// New creates a Pool.
func New(opts Options, popts ...PoolOption) *Pool {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	p := &Pool{
		opts:   opts,
		logger: zerolog.Nop(),
	}
	for _, o := range popts {
		o(p)
	}
	return p
}

// Run enriches entries and returns the records in completion order.
// Per-entry failures are counted and dropped. The only error returned is
// the context's, when the run is cancelled before every entry was attempted.
func (p *Pool) Run(ctx context.Context, entries []model.UniverseEntry, valuer Valuer) ([]model.ValuationRecord, Stats, error) {
	start := time.Now()

	work := entries
	if p.opts.MaxEnriched > 0 && len(work) > p.opts.MaxEnriched {
		p.logger.Info().
			Int("universe", len(entries)).
			Int("max_enriched", p.opts.MaxEnriched).
			Msg("truncating universe before enrichment")
		work = work[:p.opts.MaxEnriched]
	}

	var (
		next      atomic.Int64
		attempted atomic.Int64
		succeeded atomic.Int64
		failed    atomic.Int64
		rejected  atomic.Int64

		mu      sync.Mutex
		records = make([]model.ValuationRecord, 0, len(work))
	)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < p.opts.Concurrency; w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}

				i := int(next.Add(1) - 1)
				if i >= len(work) {
					return nil
				}
				entry := work[i]

				attempted.Add(1)
				v, res := p.enrichOne(gctx, entry, valuer)
				switch res {
				case ResultOK:
					succeeded.Add(1)
					mu.Lock()
					records = append(records, model.ValuationRecord{Symbol: entry.Symbol, Valuation: v})
					mu.Unlock()
				case ResultFailed:
					failed.Add(1)
				case ResultRejected:
					rejected.Add(1)
				}
				if p.onResult != nil {
					p.onResult(res)
				}

				if err := backoff.Sleep(gctx, p.opts.Delay); err != nil {
					return err
				}
			}
		})
	}
	err := g.Wait()

	stats := Stats{
		Attempted: attempted.Load(),
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Rejected:  rejected.Load(),
		Duration:  time.Since(start),
	}

	p.logger.Info().
		Int("entries", len(work)).
		Int("workers", p.opts.Concurrency).
		Int64("attempted", stats.Attempted).
		Int64("succeeded", stats.Succeeded).
		Int64("failed", stats.Failed).
		Int64("rejected", stats.Rejected).
		Dur("duration", stats.Duration).
		Msg("enrichment complete")

	return records, stats, err
}

// enrichOne resolves a single entry. Errors never escape.
func (p *Pool) enrichOne(ctx context.Context, entry model.UniverseEntry, valuer Valuer) (float64, Result) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	v, err := valuer.Valuation(ctx, entry)
	if err != nil {
		p.logger.Debug().
			Str("symbol", entry.Symbol).
			Str("class", backoff.Classify(err).String()).
			Err(err).
			Msg("dropping entry: valuation lookup failed")
		return 0, ResultFailed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		p.logger.Debug().
			Str("symbol", entry.Symbol).
			Float64("valuation", v).
			Msg("dropping entry: unusable valuation")
		return 0, ResultRejected
	}
	return v, ResultOK
}

// Run is a convenience wrapper around New(opts).Run.
func Run(ctx context.Context, entries []model.UniverseEntry, valuer Valuer, opts Options) ([]model.ValuationRecord, Stats, error) {
	return New(opts).Run(ctx, entries, valuer)
}
