package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/top500/internal/enrich"
	"github.com/rickgao/top500/internal/metrics"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/rank"
	"github.com/rickgao/top500/internal/snapshot"
	"github.com/rickgao/top500/internal/universe"
)

// fakeVendor lists symbols S00..S(n-1) valued at (n-i)*10, failing for the listed symbols.
type fakeVendor struct {
	n        int
	fail     map[string]bool
	pageErr  error
	prepErr  error
	pages    atomic.Int32
	prepared atomic.Bool
	block    chan struct{}
}

func (f *fakeVendor) Page(ctx context.Context, cursor string, pageSize int) (universe.Page, error) {
	f.pages.Add(1)
	if f.pageErr != nil {
		return universe.Page{}, f.pageErr
	}
	var page universe.Page
	for i := 0; i < f.n; i++ {
		page.Records = append(page.Records, universe.Record{ID: fmt.Sprintf("S%02d", i), Name: fmt.Sprintf("Company %d", i)})
	}
	return page, nil
}

func (f *fakeVendor) Prepare(ctx context.Context, date model.Date) error {
	f.prepared.Store(true)
	return f.prepErr
}

func (f *fakeVendor) Valuation(ctx context.Context, e model.UniverseEntry) (float64, error) {
	if f.block != nil {
		<-f.block
	}
	if f.fail[e.Symbol] {
		return 0, errors.New("404")
	}
	var i int
	fmt.Sscanf(e.Symbol, "S%02d", &i)
	return float64((f.n - i) * 10), nil
}

// memStore records writes.
type memStore struct {
	mu     sync.Mutex
	writes map[model.Date][]model.RankedEntry
	err    error
}

func (m *memStore) Write(ctx context.Context, d model.Date, entries []model.RankedEntry) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writes == nil {
		m.writes = map[model.Date][]model.RankedEntry{}
	}
	m.writes[d] = entries
	return nil
}

func testOptions() Options {
	return Options{
		Credential: "key",
		Universe:   universe.Options{PageSize: 100, MaxPages: 1},
		Enrich:     enrich.Options{Concurrency: 3},
		TopN:       5,
		MinEntries: 5,
	}
}

var fixedNow = time.Date(2025, 3, 14, 21, 30, 0, 0, time.UTC)

func newTestRunner(opts Options, v *fakeVendor, store SnapshotWriter, ropts ...RunnerOption) *Runner {
	ropts = append([]RunnerOption{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "run-1" }),
	}, ropts...)
	return New(opts, v, v, store, zerolog.Nop(), ropts...)
}

func TestRun_Success(t *testing.T) {
	v := &fakeVendor{n: 10, fail: map[string]bool{"S00": true, "S04": true}}
	store := &memStore{}
	m := metrics.New()
	r := newTestRunner(testOptions(), v, store, WithMetrics(m))

	res, err := r.Run(context.Background(), model.Date{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "2025-03-14", res.Date.String())
	assert.Equal(t, 10, res.UniverseSize)
	assert.Equal(t, 8, res.Enriched)
	assert.Equal(t, 5, res.Ranked)
	assert.True(t, v.prepared.Load())

	written := store.writes[res.Date]
	require.Len(t, written, 5)
	assert.Equal(t, "S01", written[0].Symbol)
	assert.Equal(t, "Company 1", written[0].DisplayName)
	assert.Equal(t, 1, written[0].Rank)
	assert.Equal(t, "S06", written[4].Symbol)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesFetched))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.UniverseSize))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.EnrichResults.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnrichResults.WithLabelValues("failed")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.SnapshotEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestRun_RunDateInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	opts := testOptions()
	opts.Location = loc
	r := newTestRunner(opts, &fakeVendor{n: 10}, &memStore{})

	// 21:30 UTC on the 14th is the 15th in Tokyo.
	assert.Equal(t, "2025-03-15", r.Today().String())
}

func TestRun_ExplicitDate(t *testing.T) {
	store := &memStore{}
	r := newTestRunner(testOptions(), &fakeVendor{n: 10}, store)

	d, _ := model.ParseDate("2025-01-02")
	res, err := r.Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, d, res.Date)
	assert.Contains(t, store.writes, d)
}

func TestRun_MissingCredential(t *testing.T) {
	v := &fakeVendor{n: 10}
	opts := testOptions()
	opts.Credential = ""
	opts.CredentialEnv = "POLYGON_API_KEY"
	r := newTestRunner(opts, v, &memStore{})

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "POLYGON_API_KEY")
	assert.Zero(t, v.pages.Load(), "no network call before the credential check")
}

func TestRun_EmptyUniverse(t *testing.T) {
	store := &memStore{}
	r := newTestRunner(testOptions(), &fakeVendor{n: 0}, store)

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, universe.ErrEmptyUniverse)
	assert.Empty(t, store.writes)
}

func TestRun_ListerFailureIsFatal(t *testing.T) {
	boom := errors.New("upstream down")
	v := &fakeVendor{n: 10, pageErr: boom}
	r := newTestRunner(testOptions(), v, &memStore{})

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, v.prepared.Load())
}

func TestRun_PrepareFailure(t *testing.T) {
	v := &fakeVendor{n: 10, prepErr: errors.New("no closes")}
	store := &memStore{}
	r := newTestRunner(testOptions(), v, store)

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorContains(t, err, "prepare valuations")
	assert.Empty(t, store.writes)
}

func TestRun_NoValuations(t *testing.T) {
	fail := map[string]bool{}
	for i := 0; i < 4; i++ {
		fail[fmt.Sprintf("S%02d", i)] = true
	}
	store := &memStore{}
	r := newTestRunner(testOptions(), &fakeVendor{n: 4, fail: fail}, store)

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, ErrNoValuations)
	assert.ErrorIs(t, err, universe.ErrEmptyUniverse)
	assert.Empty(t, store.writes)
}

func TestRun_InsufficientUniverse(t *testing.T) {
	store := &memStore{}
	m := metrics.New()
	r := newTestRunner(testOptions(), &fakeVendor{n: 4}, store, WithMetrics(m))

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, rank.ErrInsufficientUniverse)
	assert.Empty(t, store.writes, "previous snapshot must stay untouched")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(metrics.OutcomeFailure)))
}

func TestRun_StoreUnavailable(t *testing.T) {
	store := &memStore{err: snapshot.ErrStoreUnavailable}
	r := newTestRunner(testOptions(), &fakeVendor{n: 10}, store)

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, snapshot.ErrStoreUnavailable)
}

func TestRun_Serialized(t *testing.T) {
	v := &fakeVendor{n: 10, block: make(chan struct{})}
	r := newTestRunner(testOptions(), v, &memStore{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), model.Date{})
		done <- err
	}()

	require.Eventually(t, func() bool { return v.pages.Load() == 1 }, time.Second, time.Millisecond)
	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(v.block)
	assert.NoError(t, <-done)
}

func TestRun_GlobalTimeout(t *testing.T) {
	v := &fakeVendor{n: 10, block: make(chan struct{})}
	defer close(v.block)

	opts := testOptions()
	opts.Timeout = 20 * time.Millisecond
	opts.Enrich.Timeout = 0
	r := New(opts, v, enrich.ValuerFunc(func(ctx context.Context, e model.UniverseEntry) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}), &memStore{}, zerolog.Nop())

	_, err := r.Run(context.Background(), model.Date{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
