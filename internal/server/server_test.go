package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/top500/internal/metrics"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/snapshot"
	"github.com/rickgao/top500/internal/sp500"
)

func entries(symbols ...string) []model.RankedEntry {
	out := make([]model.RankedEntry, len(symbols))
	for i, s := range symbols {
		out[i] = model.RankedEntry{Rank: i + 1, Symbol: s, DisplayName: s, Valuation: float64(100 - i)}
	}
	return out
}

func newStore(t *testing.T, snaps map[string][]model.RankedEntry) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshots"), zerolog.Nop())
	for day, e := range snaps {
		d, err := model.ParseDate(day)
		require.NoError(t, err)
		require.NoError(t, store.Write(context.Background(), d, e))
	}
	return store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEmptyStore(t *testing.T) {
	s := New(Config{}, newStore(t, nil), nil, zerolog.Nop())
	h := s.Handler()

	rec := get(t, h, "/api/top500.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no snapshot yet"}`, rec.Body.String())

	rec = get(t, h, "/api/movers.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get(t, h, "/api/changes.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entered":[],"exited":[]}`, rec.Body.String())

	rec = get(t, h, "/api/snapshots.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestViews(t *testing.T) {
	store := newStore(t, map[string][]model.RankedEntry{
		"2025-03-13": entries("A", "B", "C"),
		"2025-03-14": entries("B", "A", "D"),
	})
	h := New(Config{MoversTop: 10}, store, nil, zerolog.Nop()).Handler()

	rec := get(t, h, "/api/top500.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2025-03-14", rec.Header().Get("X-Snapshot-Date"))
	var top []model.RankedEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	assert.Equal(t, entries("B", "A", "D"), top)

	rec = get(t, h, "/api/movers.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"ticker":"A","prevRank":1,"newRank":2,"rankDelta":-1},
		{"ticker":"B","prevRank":2,"newRank":1,"rankDelta":1}
	]`, rec.Body.String())

	rec = get(t, h, "/api/movers.json?top=1")
	var movers []model.MoverRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movers))
	assert.Len(t, movers, 1)

	rec = get(t, h, "/api/changes.json")
	assert.JSONEq(t, `{"entered":["D"],"exited":["C"]}`, rec.Body.String())

	rec = get(t, h, "/api/snapshots.json")
	assert.JSONEq(t, `["2025-03-13","2025-03-14"]`, rec.Body.String())
}

func TestMovers_BadTop(t *testing.T) {
	h := New(Config{}, newStore(t, nil), nil, zerolog.Nop()).Handler()

	for _, q := range []string{"0", "-2", "ten"} {
		rec := get(t, h, "/api/movers.json?top="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "top=%s", q)
	}
}

// brokenStore fails every read.
type brokenStore struct{}

func (brokenStore) Latest(context.Context) (*model.Snapshot, error) {
	return nil, snapshot.ErrStoreUnavailable
}

func (brokenStore) ReadLatestTwo(context.Context) (*model.Snapshot, *model.Snapshot, error) {
	return nil, nil, errors.New("disk gone")
}

func (brokenStore) Dates(context.Context) ([]model.Date, error) {
	return nil, snapshot.ErrStoreUnavailable
}

func TestStoreUnavailable(t *testing.T) {
	h := New(Config{}, brokenStore{}, nil, zerolog.Nop()).Handler()

	for _, path := range []string{"/api/top500.json", "/api/movers.json", "/api/changes.json", "/api/snapshots.json"} {
		rec := get(t, h, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.JSONEq(t, `{"error":"snapshot store unavailable"}`, rec.Body.String(), path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	h := New(Config{}, newStore(t, nil), m.Handler(), zerolog.Nop()).Handler()

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "top500_snapshot_entries")
}

func TestNotFoundAndCORS(t *testing.T) {
	h := New(Config{}, newStore(t, nil), nil, zerolog.Nop()).Handler()

	rec := get(t, h, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

// constituentsFunc adapts a function to sp500.Lister.
type constituentsFunc func(ctx context.Context) ([]sp500.Constituent, error)

func (f constituentsFunc) Constituents(ctx context.Context) ([]sp500.Constituent, error) {
	return f(ctx)
}

func TestConstituents(t *testing.T) {
	rows := []sp500.Constituent{{
		Symbol: "MMM", Security: "3M", Sector: "Industrials", SubIndustry: "Industrial Conglomerates",
		Headquarters: "Saint Paul, Minnesota", DateAdded: "1957-03-04", CIK: "0000066740", Founded: "1902",
	}}
	lister := constituentsFunc(func(context.Context) ([]sp500.Constituent, error) { return rows, nil })
	h := New(Config{}, newStore(t, nil), nil, zerolog.Nop(), WithConstituents(lister)).Handler()

	rec := get(t, h, "/api/sp500.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{
		"symbol":"MMM","security":"3M","sector":"Industrials",
		"subIndustry":"Industrial Conglomerates","headquarters":"Saint Paul, Minnesota",
		"dateAdded":"1957-03-04","cik":"0000066740","founded":"1902"
	}]`, rec.Body.String())
}

func TestConstituents_Unavailable(t *testing.T) {
	failing := constituentsFunc(func(context.Context) ([]sp500.Constituent, error) {
		return nil, errors.New("wikipedia down")
	})
	h := New(Config{}, newStore(t, nil), nil, zerolog.Nop(), WithConstituents(failing)).Handler()
	rec := get(t, h, "/api/sp500.json")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"constituents unavailable"}`, rec.Body.String())

	h = New(Config{}, newStore(t, nil), nil, zerolog.Nop()).Handler()
	rec = get(t, h, "/api/sp500.json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
