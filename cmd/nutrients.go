package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/gutlog/internal/tracker"
)

var nutrientsCmd = &cobra.Command{
	Use:   "nutrients",
	Short: "Query the nutrient reference table",
}

var nutrientsLookupCmd = &cobra.Command{
	Use:   "lookup <food>",
	Short: "Show the per-100 g profile used for a food",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		// Lookups only touch the reference table.
		t := tracker.New(nil, nil, loadNutrients(cmd.Context()), trackerConfig())
		l := t.LookupNutrients(args[0])
		if jsonOutput {
			return printJSON(out, l)
		}
		formatNutrients(out, l)
		return nil
	},
}

func init() {
	nutrientsCmd.AddCommand(nutrientsLookupCmd)
	rootCmd.AddCommand(nutrientsCmd)
}
