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

type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	GetByEmail(ctx context.Context, campaignID uuid.UUID, email string) (*models.Contact, error)
	GetByCode(ctx context.Context, campaignID uuid.UUID, code string) (*models.Contact, error)
	GetByCodeWithCampaign(ctx context.Context, code string) (*models.ContactWithCampaign, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

type contactRepository struct {
	db *PostgresDB
}

func NewContactRepository(db *PostgresDB) ContactRepository {
	return &contactRepository{db: db}
}

const contactColumns = `
	ct.id, ct.campaign_id, ct.name, ct.first_name, ct.last_name, ct.email, ct.phone,
	ct.unique_code, ct.short_link, ct.order_id, ct.destination_url, ct.source,
	ct.email_sent_at, ct.created_at`

func contactScanTargets(c *models.Contact) []any {
	return []any{
		&c.ID,
		&c.CampaignID,
		&c.Name,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.UniqueCode,
		&c.ShortLink,
		&c.OrderID,
		&c.DestinationURL,
		&c.Source,
		&c.EmailSentAt,
		&c.CreatedAt,
	}
}

// Create вставляет контакт. Различает два нарушения уникальности:
// email в кампании (ErrDuplicateEmail) и код ссылки (ErrCodeExists).
func (r *contactRepository) Create(ctx context.Context, c *models.Contact) error {
	query := `
		INSERT INTO contacts (
			id, campaign_id, name, first_name, last_name, email, phone,
			unique_code, short_link, order_id, destination_url, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.db.Pool.QueryRow(ctx, query,
		c.ID,
		c.CampaignID,
		c.Name,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.UniqueCode,
		c.ShortLink,
		c.OrderID,
		c.DestinationURL,
		c.Source,
	).Scan(&c.CreatedAt)

	if err != nil {
		if name, ok := uniqueViolation(err); ok {
			switch name {
			case constraintContactEmail:
				return ErrDuplicateEmail
			case constraintContactCode:
				return ErrCodeExists
			}
		}
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *contactRepository) getOne(ctx context.Context, where string, args ...any) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts ct WHERE ` + where

	c := &models.Contact{}
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(contactScanTargets(c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

func (r *contactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	return r.getOne(ctx, `ct.id = $1`, id)
}

func (r *contactRepository) GetByEmail(ctx context.Context, campaignID uuid.UUID, email string) (*models.Contact, error) {
	return r.getOne(ctx, `ct.campaign_id = $1 AND ct.email = $2`, campaignID, email)
}

func (r *contactRepository) GetByCode(ctx context.Context, campaignID uuid.UUID, code string) (*models.Contact, error) {
	return r.getOne(ctx, `ct.campaign_id = $1 AND ct.unique_code = $2`, campaignID, code)
}

// GetByCodeWithCampaign находит контакт по коду ссылки вместе с его кампанией
func (r *contactRepository) GetByCodeWithCampaign(ctx context.Context, code string) (*models.ContactWithCampaign, error) {
	query := `SELECT ` + contactColumns + `, ` + prefixedCampaignColumns + `
		FROM contacts ct
		JOIN campaigns c ON c.id = ct.campaign_id
		WHERE ct.unique_code = $1`

	var result models.ContactWithCampaign
	targets := append(contactScanTargets(&result.Contact), campaignScanTargets(&result.Campaign)...)

	if err := r.db.Pool.QueryRow(ctx, query, code).Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact with campaign: %w", err)
	}
	return &result, nil
}

func (r *contactRepository) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE contacts SET email_sent_at = $2 WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

const prefixedCampaignColumns = `
	c.id, c.organizer_id, c.name, c.external_event_id, c.destination_url, c.status,
	c.commission_type, c.commission_value, c.credit_unlock_type, c.credit_unlock_days,
	c.event_date, c.event_end_date, c.promotion_end_date,
	c.rate_limit_enabled, c.rate_limit_per_hour, c.integration_type,
	c.email_subject, c.email_template, c.created_at, c.updated_at`
