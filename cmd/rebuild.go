package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/gutlog/internal/config"
	"github.com/sells-group/gutlog/internal/tracker"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Replay the event log and repair the cached stock",
	Long:  "Recomputes the stock from every meal and elimination. With --all every user in the store is rebuilt concurrently.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		all, _ := cmd.Flags().GetBool("all")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		e, err := initEnv(ctx, config.ModeMigrate)
		if err != nil {
			return err
		}
		defer e.Close()

		var results []tracker.RebuildResult
		if all {
			if concurrency <= 0 {
				concurrency = cfg.Rebuild.Concurrency
			}
			results, err = e.Tracker.RebuildAll(ctx, concurrency)
		} else {
			var res *tracker.RebuildResult
			res, err = e.Tracker.Rebuild(ctx, userName)
			if res != nil {
				results = []tracker.RebuildResult{*res}
			}
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(out, results)
		}
		formatRebuild(out, results)
		return nil
	},
}

func init() {
	rebuildCmd.Flags().Bool("all", false, "rebuild every user")
	rebuildCmd.Flags().Int("concurrency", 0, "users rebuilt in parallel with --all (default from config)")
	rootCmd.AddCommand(rebuildCmd)
}
