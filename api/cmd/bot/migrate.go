package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"math-bot/api/internal/config"
	"math-bot/api/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)

		db, err := openDB(cmd.Context(), resolveDSN(cfg.DatabaseURL))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Println("schema applied")
		return nil
	},
}
