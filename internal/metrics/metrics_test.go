package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := New()
	finished := time.Unix(1_700_000_000, 0)

	m.ObserveRun(2*time.Minute, nil, finished)
	m.ObserveRun(time.Minute, errors.New("boom"), finished.Add(time.Hour))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestHandler(t *testing.T) {
	m := New()
	m.PagesFetched.Add(3)
	m.EnrichResults.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "top500_pages_fetched_total 3"), text)
	assert.Contains(t, text, `top500_enrich_results_total{result="ok"} 1`)
	assert.Contains(t, text, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.PagesFetched.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PagesFetched))
}
