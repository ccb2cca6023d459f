package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/top500/internal/model"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestExpression(t *testing.T) {
	cfg := Config{Hour: 16, Minute: 5, Location: newYork(t)}
	assert.Equal(t, "CRON_TZ=America/New_York 5 16 * * 1-5", cfg.Expression())
	assert.Equal(t, "CRON_TZ=UTC 0 9 * * 1-5", Config{Hour: 9}.Expression())
}

func TestNext(t *testing.T) {
	loc := newYork(t)
	s, err := New(Config{Hour: 16, Minute: 5, Location: loc}, nil, zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"weekday morning", time.Date(2025, 3, 14, 10, 0, 0, 0, loc), time.Date(2025, 3, 14, 16, 5, 0, 0, loc)},
		{"exactly at fire time", time.Date(2025, 3, 14, 16, 5, 0, 0, loc), time.Date(2025, 3, 17, 16, 5, 0, 0, loc)},
		{"tuesday evening", time.Date(2025, 3, 11, 18, 0, 0, 0, loc), time.Date(2025, 3, 12, 16, 5, 0, 0, loc)},
		{"saturday", time.Date(2025, 3, 15, 9, 0, 0, 0, loc), time.Date(2025, 3, 17, 16, 5, 0, 0, loc)},
		{"sunday night", time.Date(2025, 3, 16, 23, 0, 0, 0, loc), time.Date(2025, 3, 17, 16, 5, 0, 0, loc)},
		{"utc input", time.Date(2025, 3, 14, 21, 0, 0, 0, time.UTC), time.Date(2025, 3, 17, 16, 5, 0, 0, loc)},
		{"across dst start", time.Date(2025, 3, 7, 17, 0, 0, 0, loc), time.Date(2025, 3, 10, 16, 5, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Next(tt.now)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNext_WallClockAcrossDST(t *testing.T) {
	loc := newYork(t)
	s, err := New(Config{Hour: 16, Minute: 5, Location: loc}, nil, zerolog.Nop())
	require.NoError(t, err)

	got := s.Next(time.Date(2025, 3, 7, 17, 0, 0, 0, loc)).In(loc)
	assert.Equal(t, 16, got.Hour())
	assert.Equal(t, 5, got.Minute())
	_, offset := got.Zone()
	assert.Equal(t, -4*3600, offset)
}

func TestNew_InvalidTime(t *testing.T) {
	_, err := New(Config{Hour: 24}, nil, zerolog.Nop())
	assert.Error(t, err)
	_, err = New(Config{Minute: 60}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestScheduler_RunOnStart(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, loc)
	dates := make(chan model.Date, 1)

	job := JobFunc(func(ctx context.Context, date model.Date) error {
		dates <- date
		return nil
	})
	s, err := New(Config{Hour: 16, Minute: 5, Location: loc, RunOnStart: true}, job, zerolog.Nop(),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	s.Start(context.Background())
	select {
	case d := <-dates:
		assert.Equal(t, "2025-03-15", d.String())
	case <-time.After(2 * time.Second):
		t.Fatal("run on start did not fire")
	}
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_RunsDoNotOverlap(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	job := JobFunc(func(ctx context.Context, date model.Date) error {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return nil
	})
	s, err := New(Config{Hour: 16}, job, zerolog.Nop())
	require.NoError(t, err)
	s.Start(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.trigger.Run()
	}()
	<-started

	// A trigger while the first run is in flight is skipped.
	s.trigger.Run()
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_FailedRunKeepsScheduling(t *testing.T) {
	var calls atomic.Int32
	job := JobFunc(func(ctx context.Context, date model.Date) error {
		calls.Add(1)
		return errors.New("upstream down")
	})
	s, err := New(Config{Hour: 16}, job, zerolog.Nop())
	require.NoError(t, err)
	s.Start(context.Background())

	s.trigger.Run()
	s.trigger.Run()
	assert.Equal(t, int32(2), calls.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_NoRunAfterStop(t *testing.T) {
	job := JobFunc(func(context.Context, model.Date) error {
		t.Error("job must not run")
		return nil
	})
	s, err := New(Config{Hour: 16}, job, zerolog.Nop())
	require.NoError(t, err)

	s.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	s.trigger.Run()
}
