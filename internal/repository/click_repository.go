package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/google/uuid"
)

type ClickRepository interface {
	Record(ctx context.Context, click *models.Click) error
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Record(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (id, contact_id, campaign_id, ip_address, user_agent, referrer_url, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if click.ID == uuid.Nil {
		click.ID = uuid.New()
	}
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}

	_, err := r.db.Pool.Exec(ctx, query,
		click.ID,
		click.ContactID,
		click.CampaignID,
		click.IPAddress,
		click.UserAgent,
		click.ReferrerURL,
		click.ClickedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}
