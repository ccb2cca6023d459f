package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/top500/internal/logging"
	"github.com/rickgao/top500/internal/metrics"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/pipeline"
	"github.com/rickgao/top500/internal/scheduler"
	"github.com/rickgao/top500/internal/server"
	"github.com/rickgao/top500/internal/sp500"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API and metrics, and run the pipeline daily",
	Long: `Serve exposes the latest snapshot, movers and changes over HTTP together
with /health and /metrics. Unless schedule.enabled is false it also runs the
pipeline once per business day at schedule.at in schedule.timezone.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	logger.Info().
		Str("config", configPath).
		Str("vendor", cfg.Upstream.Vendor).
		Str("store", cfg.Store.Dir).
		Msg("starting top500 server")

	m := metrics.New()
	runner, store, err := pipeline.FromConfig(cfg, logger, m)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		MoversTop:    cfg.Server.MoversTop,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, store, m.Handler(), logging.Component(logger, "server"),
		server.WithConstituents(sp500.NewCache(pipeline.Constituents(cfg, logger, m), sp500.DefaultCacheTTL)),
	)

	var sched *scheduler.Scheduler
	if cfg.Schedule.IsEnabled() {
		hour, minute, err := cfg.Schedule.Clock()
		if err != nil {
			return fmt.Errorf("%w: %w", errConfig, err)
		}
		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return fmt.Errorf("%w: schedule.timezone: %w", errConfig, err)
		}

		job := scheduler.JobFunc(func(ctx context.Context, date model.Date) error {
			_, err := runner.Run(ctx, date)
			return err
		})
		sched, err = scheduler.New(scheduler.Config{
			Hour:       hour,
			Minute:     minute,
			Location:   loc,
			RunOnStart: cfg.Schedule.RunOnStart,
		}, job, logging.Component(logger, "scheduler"))
		if err != nil {
			return fmt.Errorf("%w: %w", errConfig, err)
		}
		sched.Start(ctx)
	} else {
		logger.Info().Msg("scheduler disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err = <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil && !errors.Is(serr, context.Canceled) {
		logger.Warn().Err(serr).Msg("server shutdown")
	}
	if sched != nil {
		if serr := sched.Stop(shutdownCtx); serr != nil {
			logger.Warn().Err(serr).Msg("scheduler did not stop in time")
		}
	}

	logger.Info().Msg("top500 server stopped")
	return err
}
