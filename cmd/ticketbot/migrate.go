package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-bot/internal/persistence"
)

func migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if dir == "" {
				dir = cfg.Postgres.MigrationsDir
			}
			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			return persistence.RunMigrations(cmd.Context(), pg.Pool, dir, logger)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	return cmd
}
