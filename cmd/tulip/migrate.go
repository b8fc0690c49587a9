package main

import (
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		version int
		force   int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("version") {
				a.cfg.DatabaseMigrationVersion = version
			}
			if cmd.Flags().Changed("force") {
				a.cfg.DatabaseMigrationForce = force
			}

			db, err := database.Connect(cmd.Context(), a.cfg.DatabaseDSN(), database.PoolConfig{MaxOpenConns: 1}, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrationService(a.cfg, a.logger).MigratePostgres(db.SQL(), a.cfg.DatabaseName); err != nil {
				return err
			}
			a.logger.Info("Database migrated")
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Target migration version, 0 for the latest")
	cmd.Flags().IntVar(&force, "force", 0, "Force a dirty schema to this version before migrating")
	return cmd
}
