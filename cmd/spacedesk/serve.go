package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"spacedesk/internal/reservations/expiry"
	"spacedesk/internal/reservations/handler"
	"spacedesk/internal/reservations/remediation"
	"spacedesk/pkg/app"
	"spacedesk/pkg/config"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the expiry listener and the remediation job",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(ServiceName)
			cfg.SetClients()

			if migrateUp {
				ctx, cancel := context.WithTimeout(cmd.Context(), migrationTimeout)
				err := runMigrations(ctx, cfg)
				cancel()
				if err != nil {
					cfg.GracefulShutdown()
					return err
				}
			}

			c, err := buildComponents(cfg)
			if err != nil {
				cfg.GracefulShutdown()
				return err
			}

			cfg.Log.Info("Starting Spacedesk service",
				"store_driver", cfg.StoreDriver,
				"expiry_driver", cfg.ExpiryDriver,
				"version", Version,
			)

			job, err := remediation.NewJob(c.service, cfg.RemediationSchedule, remediationTimeout, cfg.Log)
			if err != nil {
				cfg.GracefulShutdown()
				return err
			}

			serverApp := app.NewApplication(cfg)
			serverApp.SetApp(
				handler.NewHealthHandler(c.repo, c.index, cfg.Log),
				handler.NewReservationHandler(c.service, cfg.Log),
				handler.NewSpaceHandler(cfg.Log),
			)
			serverApp.AddWorker(expiry.NewConsumer(c.index, c.service, cfg.ExpiryWorkers, cfg.ExpiryQueueSize, cfg.Log))
			serverApp.AddWorker(job)
			serverApp.AddCloser("events publisher", c.publisher)
			serverApp.AddCloser("expiry index", c.index)
			serverApp.Run()
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply store migrations before serving")
	return cmd
}

const remediationTimeout = 5 * time.Minute
