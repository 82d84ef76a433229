package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	mongoMigration "spacedesk/internal/migrations/mongo"
	postgresMigration "spacedesk/internal/migrations/postgres"
	"spacedesk/pkg/config"
)

const migrationTimeout = 120 * time.Second

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create collections, tables and indexes for the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), migrationTimeout)
			defer cancel()

			cfg := config.Load(ServiceName + "-migration")
			cfg.SetClients()
			defer cfg.GracefulShutdown()

			cfg.Log.Info("Starting migration job", "store_driver", cfg.StoreDriver)
			if err := runMigrations(ctx, cfg); err != nil {
				return err
			}
			cfg.Log.Info("Migration completed successfully")
			return nil
		},
	}
}

func runMigrations(ctx context.Context, cfg *config.Config) error {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
			return fmt.Errorf("mongo migration failed: %w", err)
		}
	case config.StorePostgres:
		if err := postgresMigration.Up(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
			return fmt.Errorf("postgres migration failed: %w", err)
		}
	default:
		cfg.Log.Info("Store driver needs no migrations", "store_driver", cfg.StoreDriver)
	}
	return nil
}
