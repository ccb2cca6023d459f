package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/tidwall/pretty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rickgao/top500/internal/model"
)

func numberPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = w.Write(pretty.Pretty(b))
	return err
}

// printRanking writes a ranking as an aligned table.
func printRanking(w io.Writer, snap *model.Snapshot, limit int) error {
	entries := snap.Entries
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	p := numberPrinter()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Snapshot %s (%d entries)\n", snap.Date, len(snap.Entries))
	fmt.Fprintln(tw, "RANK\tTICKER\tMARKET CAP\tNAME")
	for _, e := range entries {
		fmt.Fprintln(tw, p.Sprintf("%d\t%s\t%d\t%s", e.Rank, e.Symbol, int64(e.Valuation), e.DisplayName))
	}
	return tw.Flush()
}

// printMovers writes movers with upward moves in green and downward in red.
func printMovers(w io.Writer, movers []model.MoverRecord) error {
	if len(movers) == 0 {
		fmt.Fprintln(w, "No movers yet.")
		return nil
	}

	up := color.New(color.FgGreen).SprintfFunc()
	down := color.New(color.FgRed).SprintfFunc()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tPREV\tNOW\tDELTA")
	for _, m := range movers {
		var delta string
		switch {
		case m.RankDelta > 0:
			delta = up("+%d", m.RankDelta)
		case m.RankDelta < 0:
			delta = down("%d", m.RankDelta)
		default:
			delta = "0"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", m.Symbol, m.PreviousRank, m.NewRank, delta)
	}
	return tw.Flush()
}

// printChanges writes symbols that entered and exited the ranking.
func printChanges(w io.Writer, changes model.ChangeSet) {
	if len(changes.Entered) == 0 && len(changes.Exited) == 0 {
		fmt.Fprintln(w, "No membership changes.")
		return
	}

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	for _, s := range changes.Entered {
		added.Fprintf(w, "+ %s\n", s)
	}
	for _, s := range changes.Exited {
		removed.Fprintf(w, "- %s\n", s)
	}
}
