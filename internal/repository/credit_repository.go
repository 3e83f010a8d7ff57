package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/google/uuid"
)

type CreditRepository interface {
	Create(ctx context.Context, credit *models.Credit) error
	UnlockPendingForCampaigns(ctx context.Context, campaignIDs []uuid.UUID, now time.Time) (int64, error)
	UnlockPendingCreatedBefore(ctx context.Context, campaignID uuid.UUID, cutoff, now time.Time) (int64, error)
}

type creditRepository struct {
	db *PostgresDB
}

func NewCreditRepository(db *PostgresDB) CreditRepository {
	return &creditRepository{db: db}
}

func (r *creditRepository) Create(ctx context.Context, c *models.Credit) error {
	query := `
		INSERT INTO credits (id, contact_id, campaign_id, conversion_id, amount, status, unlocked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.db.Pool.QueryRow(ctx, query,
		c.ID,
		c.ContactID,
		c.CampaignID,
		c.ConversionID,
		c.Amount,
		c.Status,
		c.UnlockedAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == constraintCreditConversion {
			return ErrDuplicateCredit
		}
		return fmt.Errorf("failed to create credit: %w", err)
	}
	return nil
}

// UnlockPendingForCampaigns переводит все pending кредиты кампаний в available.
// Фильтр по status делает повторный вызов безопасным.
func (r *creditRepository) UnlockPendingForCampaigns(ctx context.Context, campaignIDs []uuid.UUID, now time.Time) (int64, error) {
	if len(campaignIDs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(campaignIDs))
	for i, id := range campaignIDs {
		ids[i] = id.String()
	}

	query := `
		UPDATE credits
		SET status = 'available', unlocked_at = $2, updated_at = $2
		WHERE campaign_id = ANY($1::uuid[]) AND status = 'pending'
	`

	result, err := r.db.Pool.Exec(ctx, query, ids, now)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock event-based credits: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *creditRepository) UnlockPendingCreatedBefore(ctx context.Context, campaignID uuid.UUID, cutoff, now time.Time) (int64, error) {
	query := `
		UPDATE credits
		SET status = 'available', unlocked_at = $3, updated_at = $3
		WHERE campaign_id = $1 AND status = 'pending' AND created_at <= $2
	`

	result, err := r.db.Pool.Exec(ctx, query, campaignID, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock delayed credits: %w", err)
	}
	return result.RowsAffected(), nil
}
