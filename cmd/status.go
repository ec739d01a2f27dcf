package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/gutlog/internal/config"
	"github.com/sells-group/gutlog/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stock, transit statistics and the next predicted elimination",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		e, err := initEnv(ctx, config.ModeRecord)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.Tracker.Status(ctx, tracker.Request{User: userName})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, st)
		}
		formatStatus(out, st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
