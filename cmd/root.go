package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/config"
)

var cfg *config.Config

var (
	userName   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "gutlog",
	Short: "Meal and bowel movement tracker",
	Long:  "Recognizes meals from photos, estimates excretion mass, keeps a per-user gut stock ledger and predicts the next elimination from personal transit times.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userName, "user", "u", os.Getenv("USER"), "user the command acts for")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
