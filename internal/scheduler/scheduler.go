package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rickgao/top500/internal/model"
)

// Job runs the pipeline for a calendar date.
type Job interface {
	RunFor(ctx context.Context, date model.Date) error
}

// JobFunc is a function adapter for Job.
type JobFunc func(ctx context.Context, date model.Date) error

func (f JobFunc) RunFor(ctx context.Context, date model.Date) error {
	return f(ctx, date)
}

// Config holds scheduler configuration.
type Config struct {
	Hour       int
	Minute     int
	Location   *time.Location // default: UTC
	RunOnStart bool           // Run once immediately for today
}

// Expression returns the business-day cron expression for cfg.
func (c Config) Expression() string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * 1-5", loc.String(), c.Minute, c.Hour)
}

// Scheduler fires a Job at the configured time on business days.
type Scheduler struct {
	cfg      Config
	job      Job
	logger   zerolog.Logger
	now      func() time.Time
	schedule cron.Schedule
	cron     *cron.Cron
	trigger  cron.Job // job wrapped so overlapping triggers are skipped

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // RunOnStart runs, which cron does not track
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now when deriving the run date.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a Scheduler.
func New(cfg Config, job Job, logger zerolog.Logger, opts ...Option) (*Scheduler, error) {
	if cfg.Hour < 0 || cfg.Hour > 23 || cfg.Minute < 0 || cfg.Minute > 59 {
		return nil, fmt.Errorf("invalid schedule time %02d:%02d", cfg.Hour, cfg.Minute)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	schedule, err := cron.ParseStandard(cfg.Expression())
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Expression(), err)
	}

	s := &Scheduler{
		cfg:      cfg,
		job:      job,
		logger:   logger,
		now:      time.Now,
		schedule: schedule,
	}
	for _, o := range opts {
		o(s)
	}

	cl := cronLogger{logger: logger}
	s.trigger = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.fire))
	s.cron = cron.New(cron.WithLocation(cfg.Location), cron.WithLogger(cl))
	s.cron.Schedule(schedule, s.trigger)
	return s, nil
}

// Next returns the first business-day fire time strictly after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now)
}

// Start begins scheduling. Runs receive a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.cfg.Expression()).
		Time("next", s.Next(s.now())).
		Msg("scheduler started")

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger.Run()
		}()
	}
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire runs the job for today's date in the schedule's zone.
func (s *Scheduler) fire() {
	ctx := s.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}
	date := model.DateOf(s.now().In(s.cfg.Location))

	s.logger.Info().Str("date", date.String()).Msg("scheduled run starting")
	if err := s.job.RunFor(ctx, date); err != nil {
		s.logger.Error().Err(err).Str("date", date.String()).Msg("scheduled run failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
