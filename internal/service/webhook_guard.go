package service

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Пороги детектора подозрительной активности
const (
	rateLimitWindow = time.Hour

	burstWindow    = 5 * time.Minute
	burstThreshold = 20

	errorSampleSize = 10
	errorSampleMin  = 5
	errorThreshold  = 5
)

// RateLimitResult результат проверки лимита вебхуков кампании
type RateLimitResult struct {
	Allowed bool
	Limit   int
	Current int64
	// ResetAt начало следующего часа. Это подсказка клиенту, окно при этом скользящее.
	ResetAt time.Time
}

type SuspicionResult struct {
	Suspicious bool
	Reason     string
}

// WebhookGuard лимит запросов и эвристики злоупотреблений по журналу вебхуков
type WebhookGuard interface {
	CheckRateLimit(ctx context.Context, campaign *models.Campaign) (*RateLimitResult, error)
	// DetectSuspiciousActivity никогда не блокирует запрос, ошибки хранилища только логируются
	DetectSuspiciousActivity(ctx context.Context, campaignID uuid.UUID) SuspicionResult
}

type webhookGuard struct {
	logRepo repository.WebhookLogRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewWebhookGuard(logRepo repository.WebhookLogRepository, logger *zap.Logger) WebhookGuard {
	return &webhookGuard{
		logRepo: logRepo,
		logger:  logger,
		now:     time.Now,
	}
}

func (g *webhookGuard) CheckRateLimit(ctx context.Context, campaign *models.Campaign) (*RateLimitResult, error) {
	now := g.now()

	if !campaign.RateLimitEnabled {
		return &RateLimitResult{
			Allowed: true,
			Limit:   campaign.RateLimitPerHour,
			Current: 0,
			ResetAt: now.Add(rateLimitWindow),
		}, nil
	}

	current, err := g.logRepo.CountSince(ctx, campaign.ID, now.Add(-rateLimitWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent webhooks: %w", err)
	}

	return &RateLimitResult{
		Allowed: current < int64(campaign.RateLimitPerHour),
		Limit:   campaign.RateLimitPerHour,
		Current: current,
		ResetAt: now.UTC().Truncate(time.Hour).Add(time.Hour),
	}, nil
}

func (g *webhookGuard) DetectSuspiciousActivity(ctx context.Context, campaignID uuid.UUID) SuspicionResult {
	now := g.now()

	recent, err := g.logRepo.CountSince(ctx, campaignID, now.Add(-burstWindow))
	if err != nil {
		g.logger.Warn("Abuse check: failed to count recent webhooks",
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err),
		)
	} else if recent > burstThreshold {
		return SuspicionResult{
			Suspicious: true,
			Reason:     fmt.Sprintf("Rapid requests detected: more than %d requests in 5 minutes", burstThreshold),
		}
	}

	statuses, err := g.logRepo.RecentStatuses(ctx, campaignID, errorSampleSize)
	if err != nil {
		g.logger.Warn("Abuse check: failed to load recent statuses",
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err),
		)
		return SuspicionResult{}
	}

	// на малой выборке доля ошибок не показательна
	if len(statuses) < errorSampleMin {
		return SuspicionResult{}
	}

	failed := 0
	for _, status := range statuses {
		if status >= 400 {
			failed++
		}
	}

	if failed >= errorThreshold {
		return SuspicionResult{
			Suspicious: true,
			Reason:     fmt.Sprintf("High error rate: %d of last %d requests failed", failed, len(statuses)),
		}
	}

	return SuspicionResult{}
}
