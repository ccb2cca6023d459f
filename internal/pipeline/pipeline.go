package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rickgao/top500/internal/enrich"
	"github.com/rickgao/top500/internal/metrics"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/rank"
	"github.com/rickgao/top500/internal/universe"
)

var (
	// ErrMissingCredential is returned before any network call when no credential is configured.
	ErrMissingCredential = errors.New("missing upstream credential")

	// ErrNoValuations means enrichment produced nothing. It matches universe.ErrEmptyUniverse.
	ErrNoValuations = fmt.Errorf("%w: no valuations obtained", universe.ErrEmptyUniverse)

	// ErrRunInProgress is returned when a run is requested while another is active.
	ErrRunInProgress = errors.New("pipeline run already in progress")
)

// Preparer is implemented by valuers that load per-run data before enrichment.
type Preparer interface {
	Prepare(ctx context.Context, runDate model.Date) error
}

// SnapshotWriter persists a ranking. *snapshot.Store satisfies it.
type SnapshotWriter interface {
	Write(ctx context.Context, date model.Date, entries []model.RankedEntry) error
}

// Options holds run configuration.
type Options struct {
	Credential    string
	CredentialEnv string // Named in the missing-credential error
	Universe      universe.Options
	Enrich        enrich.Options
	TopN          int
	MinEntries    int
	Timeout       time.Duration  // Global run timeout; 0 disables
	Location      *time.Location // Zone used to derive the run date
}

// Result summarises a successful run.
type Result struct {
	RunID        string
	Date         model.Date
	UniverseSize int
	Enriched     int
	Ranked       int
	Stats        enrich.Stats
	Duration     time.Duration
}

// Runner executes pipeline runs.
type Runner struct {
	opts    Options
	pager   universe.Pager
	valuer  enrich.Valuer
	store   SnapshotWriter
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithIDGenerator replaces the run ID source.
func WithIDGenerator(fn func() string) RunnerOption {
	return func(r *Runner) {
		r.newID = fn
	}
}

// New creates a Runner.
func New(opts Options, pager universe.Pager, valuer enrich.Valuer, store SnapshotWriter, logger zerolog.Logger, ropts ...RunnerOption) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	r := &Runner{
		opts:   opts,
		pager:  pager,
		valuer: valuer,
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, o := range ropts {
		o(r)
	}
	return r
}

// Today returns the current calendar date in the configured zone.
func (r *Runner) Today() model.Date {
	return model.DateOf(r.now().In(r.opts.Location))
}

// Run executes one run for date (today when zero).
func (r *Runner) Run(ctx context.Context, date model.Date) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	start := r.now()
	if date.IsZero() {
		date = r.Today()
	}
	runID := r.newID()
	logger := r.logger.With().Str("run_id", runID).Str("date", date.String()).Logger()

	res, err := r.run(ctx, logger, date)
	duration := r.now().Sub(start)

	if r.metrics != nil {
		r.metrics.ObserveRun(duration, err, r.now())
	}
	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("run failed")
		return nil, err
	}

	res.RunID = runID
	res.Duration = duration
	logger.Info().
		Int("universe", res.UniverseSize).
		Int("enriched", res.Enriched).
		Int("ranked", res.Ranked).
		Dur("duration", duration).
		Msg("run complete")
	return res, nil
}

func (r *Runner) run(ctx context.Context, logger zerolog.Logger, date model.Date) (*Result, error) {
	if r.opts.Credential == "" {
		if r.opts.CredentialEnv != "" {
			return nil, fmt.Errorf("%w: set %s", ErrMissingCredential, r.opts.CredentialEnv)
		}
		return nil, ErrMissingCredential
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	logger.Info().Msg("run started")

	// 1. Universe
	lopts := []universe.ListerOption{universe.WithLogger(logger)}
	if r.metrics != nil {
		lopts = append(lopts, universe.WithPageHook(func(int) { r.metrics.PagesFetched.Inc() }))
	}
	entries, err := universe.NewLister(r.opts.Universe, lopts...).List(ctx, r.pager)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.UniverseSize.Set(float64(len(entries)))
	}

	// 2. Per-run valuation inputs
	if p, ok := r.valuer.(Preparer); ok {
		if err := p.Prepare(ctx, date); err != nil {
			return nil, fmt.Errorf("prepare valuations: %w", err)
		}
	}

	// 3. Enrichment
	popts := []enrich.PoolOption{enrich.WithLogger(logger)}
	if r.metrics != nil {
		popts = append(popts, enrich.WithResultHook(func(res enrich.Result) {
			r.metrics.EnrichResults.WithLabelValues(string(res)).Inc()
		}))
	}
	records, stats, err := enrich.New(r.opts.Enrich, popts...).Run(ctx, entries, r.valuer)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w from %d entries", ErrNoValuations, stats.Attempted)
	}

	// 4. Rank and gate
	ranking := rank.Top(rank.Join(entries, records), r.opts.TopN)
	if err := rank.Accept(ranking, r.opts.MinEntries); err != nil {
		return nil, err
	}

	// 5. Persist
	if err := r.store.Write(ctx, date, ranking); err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.SnapshotEntries.Set(float64(len(ranking)))
	}

	return &Result{
		Date:         date,
		UniverseSize: len(entries),
		Enriched:     len(records),
		Ranked:       len(ranking),
		Stats:        stats,
	}, nil
}
