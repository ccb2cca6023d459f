package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/top500/internal/diff"
	"github.com/rickgao/top500/internal/snapshot"
)

var (
	showLimit int
	moversTop int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the latest snapshot",
	RunE:  runShow,
}

var moversCmd = &cobra.Command{
	Use:   "movers",
	Short: "Largest rank changes between the two latest snapshots",
	RunE:  runMovers,
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Symbols that entered or left the ranking since the previous snapshot",
	RunE:  runChanges,
}

func init() {
	rootCmd.AddCommand(showCmd, moversCmd, changesCmd)
	showCmd.Flags().IntVar(&showLimit, "limit", 25, "rows to print (0 for all)")
	moversCmd.Flags().IntVar(&moversTop, "top", 10, "number of movers")
}

func openStore() (*snapshot.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return snapshot.NewStore(cfg.Store.Dir, newLogger(cfg)), nil
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	snap, err := store.Latest(cmd.Context())
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshot yet. Run `top500 run` first.")
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), snap.Entries)
	}
	return printRanking(cmd.OutOrStdout(), snap, showLimit)
}

func runMovers(cmd *cobra.Command, args []string) error {
	if moversTop < 1 {
		return fmt.Errorf("%w: --top must be positive", errConfig)
	}
	store, err := openStore()
	if err != nil {
		return err
	}

	prev, latest, err := store.ReadLatestTwo(cmd.Context())
	if err != nil {
		return err
	}
	movers := diff.Movers(prev, latest, moversTop)

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), movers)
	}
	return printMovers(cmd.OutOrStdout(), movers)
}

func runChanges(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	prev, latest, err := store.ReadLatestTwo(cmd.Context())
	if err != nil {
		return err
	}
	changes := diff.Changes(prev, latest)

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), changes)
	}
	printChanges(cmd.OutOrStdout(), changes)
	return nil
}
