package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "top500"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	PagesFetched    prometheus.Counter
	UniverseSize    prometheus.Gauge
	EnrichResults   *prometheus.CounterVec
	UpstreamRetries *prometheus.CounterVec
	SnapshotEntries prometheus.Gauge
	RunDuration     prometheus.Histogram
	Runs            *prometheus.CounterVec
	LastSuccess     prometheus.Gauge
}

// New creates Metrics registered on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Universe pages fetched from upstream.",
		}),
		UniverseSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "universe_size",
			Help:      "Entries in the most recently listed universe.",
		}),
		EnrichResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_results_total",
			Help:      "Enrichment attempts by result.",
		}, []string{"result"}),
		UpstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Upstream retries scheduled by the backoff executor, by failure class.",
		}, []string{"class"}),
		SnapshotEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_entries",
			Help:      "Entries in the most recently written snapshot.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of pipeline runs.",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800, 3600, 5400},
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry.MustRegister(
		m.PagesFetched,
		m.UniverseSize,
		m.EnrichResults,
		m.UpstreamRetries,
		m.SnapshotEntries,
		m.RunDuration,
		m.Runs,
		m.LastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(d time.Duration, err error, finished time.Time) {
	m.RunDuration.Observe(d.Seconds())
	if err != nil {
		m.Runs.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.Runs.WithLabelValues(OutcomeSuccess).Inc()
	m.LastSuccess.Set(float64(finished.Unix()))
}
