package main

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/spf13/cobra"
)

func unlockCreditsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "unlock-credits",
		Short: "Run one credit unlock sweep and exit",
		Long: `Run one credit unlock sweep and exit.

Suitable for an external cron when the serve scheduler is disabled
with CREDIT_UNLOCK_INTERVAL=0.`,
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

			db, err := repository.NewPostgresDB(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			unlocker := service.NewCreditUnlocker(
				repository.NewCampaignRepository(db),
				repository.NewCreditRepository(db),
				metrics.New(),
				logger,
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := unlocker.UnlockDueCredits(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Unlocked %d credits (event_based=%d, delayed=%d)\n",
				result.UnlockedCount, result.EventBased, result.Delayed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum duration of the sweep")

	return cmd
}
