package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/gutlog/internal/config"
	"github.com/sells-group/gutlog/internal/tracker"
)

var eliminationCmd = &cobra.Command{
	Use:     "elimination",
	Aliases: []string{"poop"},
	Short:   "Record eliminations",
}

var eliminationRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an elimination of the given mass",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		grams, _ := cmd.Flags().GetFloat64("grams")
		at, err := atFlag(cmd)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, config.ModeRecord)
		if err != nil {
			return err
		}
		defer e.Close()

		receipt, err := e.Tracker.RecordElimination(ctx, tracker.Request{User: userName, Now: at}, grams)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, receipt)
		}
		formatEliminationReceipt(out, receipt)
		return nil
	},
}

var eliminationResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Record a full discharge and clear the stock",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		at, err := atFlag(cmd)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, config.ModeRecord)
		if err != nil {
			return err
		}
		defer e.Close()

		receipt, err := e.Tracker.Reset(ctx, tracker.Request{User: userName, Now: at})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, receipt)
		}
		formatEliminationReceipt(out, receipt)
		return nil
	},
}

func init() {
	eliminationRecordCmd.Flags().Float64("grams", 0, "discharged mass in grams")
	eliminationRecordCmd.Flags().String("at", "", "event time as YYYY-MM-DD HH:MM (default now)")
	_ = eliminationRecordCmd.MarkFlagRequired("grams")
	eliminationResetCmd.Flags().String("at", "", "event time as YYYY-MM-DD HH:MM (default now)")

	eliminationCmd.AddCommand(eliminationRecordCmd, eliminationResetCmd)
	rootCmd.AddCommand(eliminationCmd)
}
