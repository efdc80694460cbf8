package main

import (
	"fmt"
	"os"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/config"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/persistence/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Idempotency.Backend != config.BackendPostgres {
				return fmt.Errorf("migrations only apply to the %s backend, configured backend is %s",
					config.BackendPostgres, cfg.Idempotency.Backend)
			}

			logger := cfg.Logger.NewLogger(os.Stdout)
			return postgres.Migrate(cfg.Database.URL(), logger)
		},
	}
}
