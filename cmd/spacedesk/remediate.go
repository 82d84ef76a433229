package main

import (
	"github.com/spf13/cobra"

	"spacedesk/internal/reservations/remediation"
	"spacedesk/pkg/config"
)

func newRemediateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remediate",
		Short: "Run a single pass expiring overdue reservations whose notification was lost",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(ServiceName + "-remediation")
			cfg.SetClients()
			defer cfg.GracefulShutdown()

			c, err := buildComponents(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.publisher.Close(); err != nil {
					cfg.Log.Error("Failed to close events publisher", "error", err)
				}
			}()

			job, err := remediation.NewJob(c.service, "", remediationTimeout, cfg.Log)
			if err != nil {
				return err
			}

			expired, err := job.RunOnce(cmd.Context())
			cfg.Log.Info("Remediation command finished", "expired", expired)
			return err
		},
	}
}
