package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/top500/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), version.Get())
		}
		fmt.Fprintln(cmd.OutOrStdout(), "top500", version.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
