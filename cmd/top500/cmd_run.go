package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/top500/internal/metrics"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/pipeline"
)

var runDate string

// runCmd performs one pipeline run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rank the universe once and write the day's snapshot",
	Long: `Run lists the universe, values it, ranks the top entries and writes the
snapshot for the run date (today in pipeline.timezone unless --date is set).
An existing snapshot for the same date is replaced.

Exit codes: 2 configuration or missing credential, 3 empty universe,
4 insufficient universe, 5 upstream failure, 6 snapshot store unavailable.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDate, "date", "", "run date as YYYY-MM-DD (default: today)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var date model.Date
	if runDate != "" {
		if date, err = model.ParseDate(runDate); err != nil {
			return fmt.Errorf("%w: --date: %w", errConfig, err)
		}
	}

	logger := newLogger(cfg)
	runner, store, err := pipeline.FromConfig(cfg, logger, metrics.New())
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	res, err := runner.Run(cmd.Context(), date)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"runId":    res.RunID,
			"date":     res.Date,
			"universe": res.UniverseSize,
			"enriched": res.Enriched,
			"ranked":   res.Ranked,
			"failed":   res.Stats.Failed,
			"rejected": res.Stats.Rejected,
			"duration": res.Duration.String(),
			"store":    store.Dir(),
		})
	}

	p := numberPrinter()
	fmt.Fprintln(cmd.OutOrStdout(), p.Sprintf("Ranked %d of %d valued symbols (universe %d) for %s in %s",
		res.Ranked, res.Enriched, res.UniverseSize, res.Date, res.Duration.Round(time.Second)))
	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s\n", store.Dir())
	return nil
}
