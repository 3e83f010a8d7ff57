package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ConversionRepository interface {
	Create(ctx context.Context, conversion *models.Conversion) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error)
	GetByOrderID(ctx context.Context, campaignID uuid.UUID, orderID string) (*models.Conversion, error)
	GetByBuyerEmail(ctx context.Context, campaignID uuid.UUID, email string) (*models.Conversion, error)
	CountByReferrer(ctx context.Context, contactID uuid.UUID) (int64, error)
	MarkNotificationSent(ctx context.Context, id uuid.UUID) error
}

type conversionRepository struct {
	db *PostgresDB
}

func NewConversionRepository(db *PostgresDB) ConversionRepository {
	return &conversionRepository{db: db}
}

const conversionColumns = `
	id, campaign_id, referrer_contact_id, referral_code,
	referred_customer_email, referred_customer_first_name, referred_customer_last_name,
	referred_customer_phone, buyer_email, order_id, amount,
	commission_type, commission_value, commission_amount,
	notification_sent, converted_at`

func scanConversion(row pgx.Row) (*models.Conversion, error) {
	c := &models.Conversion{}
	err := row.Scan(
		&c.ID,
		&c.CampaignID,
		&c.ReferrerContactID,
		&c.ReferralCode,
		&c.ReferredCustomerEmail,
		&c.ReferredCustomerFirstName,
		&c.ReferredCustomerLastName,
		&c.ReferredCustomerPhone,
		&c.BuyerEmail,
		&c.OrderID,
		&c.Amount,
		&c.CommissionType,
		&c.CommissionValue,
		&c.CommissionAmount,
		&c.NotificationSent,
		&c.ConvertedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create вставляет конверсию со снимком условий комиссии на момент покупки
func (r *conversionRepository) Create(ctx context.Context, c *models.Conversion) error {
	query := `
		INSERT INTO conversions (
			id, campaign_id, referrer_contact_id, referral_code,
			referred_customer_email, referred_customer_first_name, referred_customer_last_name,
			referred_customer_phone, buyer_email, order_id, amount,
			commission_type, commission_value, commission_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING converted_at
	`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.db.Pool.QueryRow(ctx, query,
		c.ID,
		c.CampaignID,
		c.ReferrerContactID,
		c.ReferralCode,
		c.ReferredCustomerEmail,
		c.ReferredCustomerFirstName,
		c.ReferredCustomerLastName,
		c.ReferredCustomerPhone,
		c.BuyerEmail,
		c.OrderID,
		c.Amount,
		c.CommissionType,
		c.CommissionValue,
		c.CommissionAmount,
	).Scan(&c.ConvertedAt)

	if err != nil {
		if name, ok := uniqueViolation(err); ok {
			switch name {
			case constraintConversionOrder:
				return ErrDuplicateOrder
			case constraintConversionBuyer:
				return ErrDuplicateBuyer
			}
		}
		return fmt.Errorf("failed to create conversion: %w", err)
	}
	return nil
}

func (r *conversionRepository) getOne(ctx context.Context, where string, args ...any) (*models.Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE ` + where + ` LIMIT 1`

	c, err := scanConversion(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversionNotFound
		}
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}
	return c, nil
}

func (r *conversionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *conversionRepository) GetByOrderID(ctx context.Context, campaignID uuid.UUID, orderID string) (*models.Conversion, error) {
	return r.getOne(ctx, `campaign_id = $1 AND order_id = $2`, campaignID, orderID)
}

// GetByBuyerEmail ищет покупку как через пиксель, так и через вебхук
func (r *conversionRepository) GetByBuyerEmail(ctx context.Context, campaignID uuid.UUID, email string) (*models.Conversion, error) {
	return r.getOne(ctx,
		`campaign_id = $1 AND (buyer_email = $2 OR referred_customer_email = $2)`,
		campaignID, email)
}

func (r *conversionRepository) CountByReferrer(ctx context.Context, contactID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM conversions WHERE referrer_contact_id = $1`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, contactID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}
	return count, nil
}

func (r *conversionRepository) MarkNotificationSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE conversions SET notification_sent = TRUE WHERE id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}
