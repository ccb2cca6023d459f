package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/top500/internal/api"
	"github.com/rickgao/top500/internal/config"
	"github.com/rickgao/top500/internal/metrics"
	"github.com/rickgao/top500/internal/model"
)

// fakePolygon serves two ticker pages, one grouped day and financials.
// The first financials request for MSFT answers 503 to exercise retries.
func fakePolygon(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	var msftFailures atomic.Int32
	msftFailures.Store(1)

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "pk" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/v3/reference/tickers" && r.URL.Query().Get("cursor") == "":
			json.NewEncoder(w).Encode(map[string]any{
				"results":  []map[string]any{{"ticker": "AAPL", "name": "Apple Inc."}, {"ticker": "MSFT", "name": "Microsoft"}},
				"next_url": server.URL + "/v3/reference/tickers?cursor=2",
			})
		case r.URL.Path == "/v3/reference/tickers":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"ticker": "NVDA", "name": "NVIDIA"}, {"ticker": "GHOST"}},
			})
		case strings.HasPrefix(r.URL.Path, "/v2/aggs/grouped/locale/us/market/stocks/2025-03-13"):
			w.Write([]byte(`{"results":[{"T":"AAPL","c":200},{"T":"MSFT","c":400},{"T":"NVDA","c":100}]}`))
		case strings.HasPrefix(r.URL.Path, "/v2/aggs/grouped/"):
			w.Write([]byte(`{"results":[]}`))
		case r.URL.Path == "/vX/reference/financials":
			var shares float64
			switch r.URL.Query().Get("ticker") {
			case "AAPL":
				shares = 15e9
			case "MSFT":
				if msftFailures.Add(-1) >= 0 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				shares = 7.5e9
			case "NVDA":
				shares = 24e9
			}
			fmt.Fprintf(w, `{"results":[{"financials":{"income_statement":{"weighted_average_shares_outstanding":{"value":%g}}}}]}`, shares)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server
}

func testConfig(t *testing.T, polygonURL string) *config.Config {
	t.Helper()
	cfg, err := config.LoadWithDefaults("")
	require.NoError(t, err)

	cfg.Upstream.PolygonURL = polygonURL
	cfg.Upstream.PolygonAPIKey = "pk"
	cfg.Backoff.BaseDelay = time.Millisecond
	cfg.Backoff.MaxDelay = 2 * time.Millisecond
	cfg.Universe.PagePause = time.Millisecond
	cfg.Enrichment.Delay = 0
	cfg.Enrichment.Concurrency = 2
	cfg.Ranking.TopN = 3
	cfg.Ranking.MinEntries = 3
	cfg.Pipeline.Timezone = "UTC"
	cfg.Store.Dir = filepath.Join(t.TempDir(), "snapshots")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestFromConfig_PolygonEndToEnd(t *testing.T) {
	server := fakePolygon(t)
	defer server.Close()

	m := metrics.New()
	runner, store, err := FromConfig(testConfig(t, server.URL), zerolog.Nop(), m)
	require.NoError(t, err)

	date, _ := model.ParseDate("2025-03-14")
	res, err := runner.Run(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 4, res.UniverseSize)
	assert.Equal(t, 3, res.Enriched)

	snap, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Entries, 3)

	// AAPL 200*15e9 = 3e12, MSFT 400*7.5e9 = 3e12 (tie keeps universe order), NVDA 100*24e9 = 2.4e12.
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, []string{snap.Entries[0].Symbol, snap.Entries[1].Symbol, snap.Entries[2].Symbol})
	assert.Equal(t, "Apple Inc.", snap.Entries[0].DisplayName)
	assert.InDelta(t, 3e12, snap.Entries[0].Valuation, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRetries.WithLabelValues("server_error")))
}

func TestFromConfig_MissingCredential(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Upstream.PolygonAPIKey = ""

	runner, _, err := FromConfig(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), config.EnvPolygonAPIKey)
}

func TestRetryReason(t *testing.T) {
	assert.Equal(t, "rate_limited", RetryReason(&api.APIError{StatusCode: 429}))
	assert.Equal(t, "server_error", RetryReason(fmt.Errorf("wrapped: %w", &api.APIError{StatusCode: 502})))
	assert.Equal(t, "transport", RetryReason(errors.New("connection reset")))
}

func TestConstituents_FromConfig(t *testing.T) {
	html := `<table id="constituents"><tr><th>Symbol</th></tr>` +
		`<tr><td>MMM</td><td>3M</td><td>reports</td><td>Industrials</td><td>Industrial Conglomerates</td>` +
		`<td>Saint Paul, Minnesota</td><td>1957-03-04</td><td>0000066740</td><td>1902</td></tr></table>`
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "parse" || r.URL.Query().Get("page") != "List_of_S&P_500_companies" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"parse": map[string]any{"text": html}})
	}))
	defer wiki.Close()

	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Upstream.WikipediaURL = wiki.URL

	rows, err := Constituents(cfg, zerolog.Nop(), nil).Constituents(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Industrial Conglomerates", rows[0].SubIndustry)
	assert.Equal(t, "0000066740", rows[0].CIK)
}
