package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetByExternalEventID(ctx context.Context, organizerID uuid.UUID, externalEventID string) (*models.Campaign, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CampaignStatus) error
	ListDueEventBased(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	ListDelayed(ctx context.Context) ([]models.Campaign, error)
}

type campaignRepository struct {
	db *PostgresDB
}

func NewCampaignRepository(db *PostgresDB) CampaignRepository {
	return &campaignRepository{db: db}
}

const campaignColumns = `
	id, organizer_id, name, external_event_id, destination_url, status,
	commission_type, commission_value, credit_unlock_type, credit_unlock_days,
	event_date, event_end_date, promotion_end_date,
	rate_limit_enabled, rate_limit_per_hour, integration_type,
	email_subject, email_template, created_at, updated_at`

func campaignScanTargets(c *models.Campaign) []any {
	return []any{
		&c.ID,
		&c.OrganizerID,
		&c.Name,
		&c.ExternalEventID,
		&c.DestinationURL,
		&c.Status,
		&c.CommissionType,
		&c.CommissionValue,
		&c.CreditUnlockType,
		&c.CreditUnlockDays,
		&c.EventDate,
		&c.EventEndDate,
		&c.PromotionEndDate,
		&c.RateLimitEnabled,
		&c.RateLimitPerHour,
		&c.IntegrationType,
		&c.EmailSubject,
		&c.EmailTemplate,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

// Create вставляет кампанию. Нарушение уникальности (organizer_id, external_event_id)
// возвращается как ErrDuplicateMapping.
func (r *campaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, organizer_id, name, external_event_id, destination_url, status,
			commission_type, commission_value, credit_unlock_type, credit_unlock_days,
			event_date, event_end_date, promotion_end_date,
			rate_limit_enabled, rate_limit_per_hour, integration_type,
			email_subject, email_template
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.db.Pool.QueryRow(ctx, query,
		c.ID,
		c.OrganizerID,
		c.Name,
		c.ExternalEventID,
		c.DestinationURL,
		c.Status,
		c.CommissionType,
		c.CommissionValue,
		c.CreditUnlockType,
		c.CreditUnlockDays,
		c.EventDate,
		c.EventEndDate,
		c.PromotionEndDate,
		c.RateLimitEnabled,
		c.RateLimitPerHour,
		c.IntegrationType,
		c.EmailSubject,
		c.EmailTemplate,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == constraintCampaignExternalEvent {
			return ErrDuplicateMapping
		}
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c := &models.Campaign{}
	if err := r.db.Pool.QueryRow(ctx, query, id).Scan(campaignScanTargets(c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

func (r *campaignRepository) GetByExternalEventID(ctx context.Context, organizerID uuid.UUID, externalEventID string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE organizer_id = $1 AND external_event_id = $2`

	c := &models.Campaign{}
	if err := r.db.Pool.QueryRow(ctx, query, organizerID, externalEventID).Scan(campaignScanTargets(c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign by external event: %w", err)
	}
	return c, nil
}

// UpdateStatus переводит кампанию из статуса from в to. Если кампания уже
// не в статусе from, возвращает ErrStatusConflict.
func (r *campaignRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CampaignStatus) error {
	query := `UPDATE campaigns SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *campaignRepository) ListDueEventBased(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM campaigns
		WHERE credit_unlock_type = 'event_based'
			AND event_end_date IS NOT NULL
			AND event_end_date <= $1
	`

	rows, err := r.db.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list event-based campaigns: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan event-based campaigns: %w", err)
	}
	return ids, nil
}

func (r *campaignRepository) ListDelayed(ctx context.Context) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE credit_unlock_type = 'delayed' AND credit_unlock_days > 0`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list delayed campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(campaignScanTargets(&c)...); err != nil {
			return nil, fmt.Errorf("failed to scan delayed campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delayed campaigns: %w", err)
	}

	return campaigns, nil
}
