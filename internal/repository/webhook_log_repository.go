package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type WebhookLogRepository interface {
	Insert(ctx context.Context, log *models.WebhookLog) error
	CountSince(ctx context.Context, campaignID uuid.UUID, since time.Time) (int64, error)
	RecentStatuses(ctx context.Context, campaignID uuid.UUID, limit int) ([]int, error)
}

type webhookLogRepository struct {
	db *PostgresDB
}

func NewWebhookLogRepository(db *PostgresDB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

func (r *webhookLogRepository) Insert(ctx context.Context, l *models.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (
			id, campaign_id, webhook_type, request_ip, request_headers, request_payload,
			response_status, response_message, processing_time_ms, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	headers := l.RequestHeaders
	if headers == nil {
		headers = map[string]string{}
	}
	payload := []byte(l.RequestPayload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	err := r.db.Pool.QueryRow(ctx, query,
		l.ID,
		l.CampaignID,
		l.WebhookType,
		l.RequestIP,
		headers,
		string(payload),
		l.ResponseStatus,
		l.ResponseMessage,
		l.ProcessingTimeMs,
		l.ErrorMessage,
	).Scan(&l.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert webhook log: %w", err)
	}
	return nil
}

func (r *webhookLogRepository) CountSince(ctx context.Context, campaignID uuid.UUID, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM webhook_logs WHERE campaign_id = $1 AND created_at >= $2`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, campaignID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count webhook logs: %w", err)
	}
	return count, nil
}

// RecentStatuses коды ответов последних limit запросов, новые первыми
func (r *webhookLogRepository) RecentStatuses(ctx context.Context, campaignID uuid.UUID, limit int) ([]int, error) {
	query := `
		SELECT response_status FROM webhook_logs
		WHERE campaign_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent webhook statuses: %w", err)
	}
	statuses, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhook statuses: %w", err)
	}
	return statuses, nil
}
