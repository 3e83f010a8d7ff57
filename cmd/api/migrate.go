package main

import (
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.App)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := repository.Migrate(cfg.DB); err != nil {
				return err
			}
			logger.Info("Database migrations applied")
			return nil
		},
	}
}
