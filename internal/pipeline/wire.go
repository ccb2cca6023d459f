package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rickgao/top500/internal/api"
	"github.com/rickgao/top500/internal/backoff"
	"github.com/rickgao/top500/internal/config"
	"github.com/rickgao/top500/internal/enrich"
	"github.com/rickgao/top500/internal/logging"
	"github.com/rickgao/top500/internal/metrics"
	"github.com/rickgao/top500/internal/snapshot"
	"github.com/rickgao/top500/internal/source"
	"github.com/rickgao/top500/internal/sp500"
	"github.com/rickgao/top500/internal/universe"
)

// vendorSource is what a market data vendor provides to a run.
type vendorSource interface {
	universe.Pager
	enrich.Valuer
}

// FromConfig wires a Runner and its store from configuration.
// m may be nil.
func FromConfig(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (*Runner, *snapshot.Store, error) {
	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("load pipeline timezone: %w", err)
	}

	exec := NewExecutor(cfg.Backoff, logging.Component(logger, "backoff"), m)
	clientOpts := []api.ClientOption{
		api.WithTimeout(cfg.Upstream.Timeout),
		api.WithExecutor(exec),
		api.WithLogger(logging.Component(logger, "api")),
		api.WithRateLimit(cfg.Upstream.RequestsPerSecond, cfg.Upstream.Burst),
		api.WithBreaker(api.BreakerConfig{
			Name:                cfg.Upstream.Vendor,
			ConsecutiveFailures: cfg.Upstream.Breaker.Failures,
			OpenTimeout:         cfg.Upstream.Breaker.OpenTimeout,
			HalfOpenRequests:    1,
		}),
	}

	var vendor vendorSource
	switch cfg.Upstream.Vendor {
	case config.VendorFinnhub:
		client := api.NewClient(cfg.Upstream.FinnhubURL, cfg.Upstream.FinnhubToken, "token", clientOpts...)
		vendor = source.NewFinnhub(client, cfg.Upstream.FinnhubExchange, logging.Component(logger, "finnhub"))
	default:
		client := api.NewClient(cfg.Upstream.PolygonURL, cfg.Upstream.PolygonAPIKey, "apiKey", clientOpts...)
		vendor = source.NewPolygon(client, logging.Component(logger, "polygon"))
	}

	var pager universe.Pager = vendor
	if cfg.Universe.Source == config.SourceSP500 {
		pager = newConstituents(cfg, exec, logger)
	}

	store := snapshot.NewStore(cfg.Store.Dir, logging.Component(logger, "snapshot"))

	opts := Options{
		Credential:    cfg.Credential(),
		CredentialEnv: cfg.CredentialEnv(),
		Universe: universe.Options{
			PageSize:  cfg.Universe.PageSize,
			MaxPages:  cfg.Universe.MaxPages,
			PagePause: cfg.Universe.PagePause,
		},
		Enrich: enrich.Options{
			Concurrency: cfg.Enrichment.Concurrency,
			Delay:       cfg.Enrichment.Delay,
			MaxEnriched: cfg.Enrichment.MaxEnriched,
			Timeout:     cfg.Enrichment.Timeout,
		},
		TopN:       cfg.Ranking.TopN,
		MinEntries: cfg.Ranking.MinEntries,
		Timeout:    cfg.Pipeline.Timeout,
		Location:   loc,
	}

	var ropts []RunnerOption
	if m != nil {
		ropts = append(ropts, WithMetrics(m))
	}

	runner := New(opts, pager, vendor, store, logging.Component(logger, "pipeline"), ropts...)
	return runner, store, nil
}

// Constituents builds the S&P 500 constituents source from configuration.
// m may be nil.
func Constituents(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) *sp500.Source {
	exec := NewExecutor(cfg.Backoff, logging.Component(logger, "backoff"), m)
	return newConstituents(cfg, exec, logger)
}

func newConstituents(cfg *config.Config, exec *backoff.Executor, logger zerolog.Logger) *sp500.Source {
	wiki := api.NewClient(cfg.Upstream.WikipediaURL, "", "",
		api.WithTimeout(cfg.Upstream.Timeout),
		api.WithExecutor(exec),
		api.WithLogger(logging.Component(logger, "wikipedia")),
	)
	return sp500.New(wiki, cfg.Universe.WikiPage)
}

// NewExecutor builds the shared backoff executor. Every scheduled retry is
// logged at debug and counted by reason when m is set.
func NewExecutor(cfg config.BackoffConfig, logger zerolog.Logger, m *metrics.Metrics) *backoff.Executor {
	policy := backoff.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Jitter:      cfg.JitterEnabled(),
	}

	return backoff.New(policy, backoff.WithOnRetry(func(attempt int, wait time.Duration, err error) {
		reason := RetryReason(err)
		if m != nil {
			m.UpstreamRetries.WithLabelValues(reason).Inc()
		}
		logger.Debug().
			Int("attempt", attempt).
			Dur("wait", wait).
			Str("reason", reason).
			Err(err).
			Msg("retrying upstream call")
	}))
}

// RetryReason labels a retriable failure for metrics.
func RetryReason(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return "rate_limited"
		}
		return "server_error"
	}
	var te backoff.TransientError
	if errors.As(err, &te) {
		return "circuit_open"
	}
	return "transport"
}
