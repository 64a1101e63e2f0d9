package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the customer store",
	Long:  "Creates the customers table for SQL stores. For Salesforce, checks that the mapped Account fields exist and are writable.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx, "migrate")
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("migrate: complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
