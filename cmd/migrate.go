package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/config"
	"github.com/sells-group/gutlog/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the store schema, optionally importing another store",
	Long:  "Creates tables in the configured store. With --from-driver every user's history is copied from that store into the configured one and the stock is carried over.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(config.ModeMigrate); err != nil {
			return err
		}

		dst, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer dst.Close() //nolint:errcheck

		fromDriver, _ := cmd.Flags().GetString("from-driver")
		if fromDriver == "" {
			zap.L().Info("schema applied", zap.String("driver", cfg.Store.Driver))
			fmt.Fprintf(cmd.OutOrStdout(), "Schema applied to %s store.\n", cfg.Store.Driver)
			return nil
		}

		src := config.StoreConfig{Driver: fromDriver}
		src.Path, _ = cmd.Flags().GetString("from-path")
		src.DatabaseURL, _ = cmd.Flags().GetString("from-url")
		src.MaxConns, src.MinConns = cfg.Store.MaxConns, cfg.Store.MinConns
		if src.Driver == "file" && src.Path == "" {
			return eris.New("--from-path is required for the file driver")
		}
		if src == cfg.Store {
			return eris.New("source and destination store are the same")
		}

		from, err := openStore(ctx, src)
		if err != nil {
			return eris.Wrap(err, "open source store")
		}
		defer from.Close() //nolint:errcheck

		n, err := store.Copy(ctx, dst, from)
		if err != nil {
			return eris.Wrap(err, "copy store")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Copied %d users from %s into %s.\n", n, fromDriver, cfg.Store.Driver)
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("from-driver", "", "source store driver to import from (sqlite, file, postgres, notion)")
	migrateCmd.Flags().String("from-path", "", "source data file for the file driver")
	migrateCmd.Flags().String("from-url", "", "source DSN for sqlite or postgres")
	rootCmd.AddCommand(migrateCmd)
}
