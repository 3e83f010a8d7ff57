package service

import (
	"context"
	"errors"
	"time"

	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"go.uber.org/zap"
)

// CreditUnlocker переводит pending кредиты в available по политике кампании.
// Обновляются только строки в статусе pending, поэтому повторный и
// параллельный запуск безопасен.
type CreditUnlocker interface {
	UnlockDueCredits(ctx context.Context) (*models.UnlockResult, error)
	// Run запускает разблокировку каждые interval до отмены ctx
	Run(ctx context.Context, interval time.Duration)
}

type creditUnlocker struct {
	campaignRepo repository.CampaignRepository
	creditRepo   repository.CreditRepository
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewCreditUnlocker(
	campaignRepo repository.CampaignRepository,
	creditRepo repository.CreditRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) CreditUnlocker {
	return &creditUnlocker{
		campaignRepo: campaignRepo,
		creditRepo:   creditRepo,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

func (u *creditUnlocker) UnlockDueCredits(ctx context.Context) (*models.UnlockResult, error) {
	now := u.now()
	result := &models.UnlockResult{RanAt: now}

	eventBased, eventErr := u.unlockEventBased(ctx, now)
	if eventErr != nil {
		u.logger.Error("Event-based credit unlock failed", zap.Error(eventErr))
	}
	result.EventBased = eventBased

	delayed, delayedErr := u.unlockDelayed(ctx, now)
	if delayedErr != nil {
		u.logger.Error("Delayed credit unlock failed", zap.Error(delayedErr))
	}
	result.Delayed = delayed

	result.UnlockedCount = result.EventBased + result.Delayed
	u.metrics.AddCreditsUnlocked(string(models.UnlockEventBased), result.EventBased)
	u.metrics.AddCreditsUnlocked(string(models.UnlockDelayed), result.Delayed)

	if eventErr != nil && delayedErr != nil {
		return result, processingError("unlock credits", errors.Join(eventErr, delayedErr))
	}

	u.logger.Info("Credit unlock sweep finished",
		zap.Int64("unlocked", result.UnlockedCount),
		zap.Int64("event_based", result.EventBased),
		zap.Int64("delayed", result.Delayed),
	)
	return result, nil
}

// unlockEventBased разблокирует кредиты кампаний, чьё событие уже закончилось
func (u *creditUnlocker) unlockEventBased(ctx context.Context, now time.Time) (int64, error) {
	ids, err := u.campaignRepo.ListDueEventBased(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return u.creditRepo.UnlockPendingForCampaigns(ctx, ids, now)
}

// unlockDelayed разблокирует кредиты старше credit_unlock_days дней.
// Ошибка по одной кампании не останавливает остальные.
func (u *creditUnlocker) unlockDelayed(ctx context.Context, now time.Time) (int64, error) {
	campaigns, err := u.campaignRepo.ListDelayed(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, c := range campaigns {
		cutoff := now.Add(-time.Duration(c.CreditUnlockDays) * 24 * time.Hour)

		n, err := u.creditRepo.UnlockPendingCreatedBefore(ctx, c.ID, cutoff, now)
		if err != nil {
			u.logger.Error("Failed to unlock delayed credits for campaign",
				zap.String("campaign_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		total += n
	}
	return total, nil
}

func (u *creditUnlocker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.logger.Info("Credit unlock scheduler started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("Credit unlock scheduler stopped")
			return
		case <-ticker.C:
			if _, err := u.UnlockDueCredits(ctx); err != nil {
				u.logger.Error("Scheduled credit unlock failed", zap.Error(err))
			}
		}
	}
}
