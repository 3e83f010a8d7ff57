package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"go.uber.org/zap"
)

const webhookLogTimeout = 5 * time.Second

// WebhookLogger пишет журнал вебхуков. Ошибки записи не возвращаются вызывающему.
type WebhookLogger interface {
	Log(ctx context.Context, entry *models.WebhookLog)
}

type webhookLogger struct {
	repo   repository.WebhookLogRepository
	logger *zap.Logger
}

func NewWebhookLogger(repo repository.WebhookLogRepository, logger *zap.Logger) WebhookLogger {
	return &webhookLogger{repo: repo, logger: logger}
}

func (l *webhookLogger) Log(ctx context.Context, entry *models.WebhookLog) {
	// запись журнала не должна прерываться отменой запроса клиента
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), webhookLogTimeout)
	defer cancel()

	if err := l.repo.Insert(ctx, entry); err != nil {
		l.logger.Error("Failed to write webhook log",
			zap.String("campaign_id", entry.CampaignID.String()),
			zap.Int("response_status", entry.ResponseStatus),
			zap.Error(err),
		)
	}
}
