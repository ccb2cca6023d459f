package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rickgao/top500/internal/pipeline"
	"github.com/rickgao/top500/internal/sp500"
)

var (
	sp500Limit  int
	sp500Sector string
)

var sp500Cmd = &cobra.Command{
	Use:   "sp500",
	Short: "List current S&P 500 constituents from Wikipedia",
	Long: `List the S&P 500 constituents table with sector, sub-industry,
headquarters, date added, CIK and founding year.

Example usage:
  top500 sp500 --sector "Information Technology"
  top500 sp500 --json`,
	RunE: runSp500,
}

func init() {
	rootCmd.AddCommand(sp500Cmd)
	sp500Cmd.Flags().IntVar(&sp500Limit, "limit", 0, "rows to print (0 for all)")
	sp500Cmd.Flags().StringVar(&sp500Sector, "sector", "", "only constituents in this GICS sector (case-insensitive)")
}

func runSp500(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src := pipeline.Constituents(cfg, newLogger(cfg), nil)
	return showConstituents(cmd.Context(), cmd.OutOrStdout(), src, sp500Sector, sp500Limit, jsonOutput)
}

// showConstituents filters by sector, truncates to limit and prints.
func showConstituents(ctx context.Context, w io.Writer, l sp500.Lister, sector string, limit int, asJSON bool) error {
	rows, err := l.Constituents(ctx)
	if err != nil {
		return fmt.Errorf("list constituents: %w", err)
	}

	filtered := make([]sp500.Constituent, 0, len(rows))
	for _, r := range rows {
		if sector == "" || strings.EqualFold(r.Sector, sector) {
			filtered = append(filtered, r)
		}
	}
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}

	if asJSON {
		return printJSON(w, filtered)
	}

	fmt.Fprintf(w, "S&P 500 constituents (%d shown of %d)\n", len(filtered), len(rows))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSECURITY\tSECTOR\tSUB-INDUSTRY\tHQ\tADDED\tCIK\tFOUNDED")
	for _, r := range filtered {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Symbol, r.Security, r.Sector, r.SubIndustry, r.Headquarters, r.DateAdded, r.CIK, r.Founded)
	}
	return tw.Flush()
}
