package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrganizerRepository interface {
	GetByClientID(ctx context.Context, clientID string) (*models.OrganizerProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.OrganizerProfile, error)
	Upsert(ctx context.Context, profile *models.OrganizerProfile) error
}

type organizerRepository struct {
	db *PostgresDB
}

func NewOrganizerRepository(db *PostgresDB) OrganizerRepository {
	return &organizerRepository{db: db}
}

const organizerColumns = `
	id, user_id, client_id, full_name, company_name,
	webhook_default_commission_type, webhook_default_commission_value,
	default_credit_unlock_type, default_credit_unlock_days,
	created_at, updated_at`

func scanOrganizer(row pgx.Row) (*models.OrganizerProfile, error) {
	p := &models.OrganizerProfile{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ClientID,
		&p.FullName,
		&p.CompanyName,
		&p.DefaultCommissionType,
		&p.DefaultCommissionValue,
		&p.DefaultCreditUnlockType,
		&p.DefaultCreditUnlockDays,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *organizerRepository) GetByClientID(ctx context.Context, clientID string) (*models.OrganizerProfile, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizer_profiles WHERE client_id = $1`

	p, err := scanOrganizer(r.db.Pool.QueryRow(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("failed to get organizer by client id: %w", err)
	}
	return p, nil
}

func (r *organizerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.OrganizerProfile, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizer_profiles WHERE user_id = $1`

	p, err := scanOrganizer(r.db.Pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	return p, nil
}

// Upsert создаёт профиль при первом сохранении и обновляет настройки при последующих
func (r *organizerRepository) Upsert(ctx context.Context, p *models.OrganizerProfile) error {
	query := `
		INSERT INTO organizer_profiles (
			id, user_id, client_id, full_name, company_name,
			webhook_default_commission_type, webhook_default_commission_value,
			default_credit_unlock_type, default_credit_unlock_days
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			company_name = EXCLUDED.company_name,
			webhook_default_commission_type = EXCLUDED.webhook_default_commission_type,
			webhook_default_commission_value = EXCLUDED.webhook_default_commission_value,
			default_credit_unlock_type = EXCLUDED.default_credit_unlock_type,
			default_credit_unlock_days = EXCLUDED.default_credit_unlock_days,
			updated_at = NOW()
		RETURNING id, client_id, created_at, updated_at
	`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := r.db.Pool.QueryRow(ctx, query,
		p.ID,
		p.UserID,
		p.ClientID,
		p.FullName,
		p.CompanyName,
		p.DefaultCommissionType,
		p.DefaultCommissionValue,
		p.DefaultCreditUnlockType,
		p.DefaultCreditUnlockDays,
	).Scan(&p.ID, &p.ClientID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == constraintOrganizerClientID {
			return ErrDuplicateClient
		}
		return fmt.Errorf("failed to save organizer profile: %w", err)
	}
	return nil
}
