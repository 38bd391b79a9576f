package main

import (
	"github.com/spf13/cobra"

	"pixelmart/internal/config"
	"pixelmart/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			log := stdoutLogger(cfg)

			db, err := database.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			return db.Migrate()
		},
	}
}
