package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rickgao/top500/internal/api"
	"github.com/rickgao/top500/internal/backoff"
	"github.com/rickgao/top500/internal/config"
	"github.com/rickgao/top500/internal/logging"
	"github.com/rickgao/top500/internal/pipeline"
	"github.com/rickgao/top500/internal/rank"
	"github.com/rickgao/top500/internal/snapshot"
	"github.com/rickgao/top500/internal/source"
	"github.com/rickgao/top500/internal/universe"
	"github.com/rickgao/top500/internal/version"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitConfig       = 2
	exitEmptyUniv    = 3
	exitInsufficient = 4
	exitUpstream     = 5
	exitStore        = 6
)

var errConfig = errors.New("configuration error")

// Global flags
var (
	configPath string
	envFile    string
	debug      bool
	jsonOutput bool
)

// rootCmd is the base command for the top500 CLI
var rootCmd = &cobra.Command{
	Use:   "top500",
	Short: "Daily top-500 market capitalisation ranking",
	Long: `top500 lists the active US equity universe from a market data vendor,
values every symbol, ranks the largest 500 and keeps one snapshot per day.

Example usage:
  top500 run                       # Rank today and write the snapshot
  top500 run --date 2025-03-14     # Rank for a specific date
  top500 show --limit 10           # Print the latest ranking
  top500 movers --top 20           # Biggest rank changes since the last run
  top500 serve                     # Read API, metrics and daily scheduler`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/top500.yaml", "path to config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
	rootCmd.Version = version.String()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// loadConfig reads the env file and config, applying --debug.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFiles(envFile); err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log, os.Stderr).With().Str("version", version.Version).Logger()
}

// exitCode maps an error to a distinct process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errConfig), errors.Is(err, pipeline.ErrMissingCredential):
		return exitConfig
	case errors.Is(err, universe.ErrEmptyUniverse):
		return exitEmptyUniv
	case errors.Is(err, rank.ErrInsufficientUniverse):
		return exitInsufficient
	case errors.Is(err, snapshot.ErrStoreUnavailable):
		return exitStore
	case isUpstream(err):
		return exitUpstream
	default:
		return exitFailure
	}
}

func isUpstream(err error) bool {
	var apiErr *api.APIError
	var urlErr *url.Error
	var transient backoff.TransientError
	return errors.As(err, &apiErr) ||
		errors.As(err, &urlErr) ||
		errors.As(err, &transient) ||
		errors.Is(err, source.ErrNoPrices)
}
