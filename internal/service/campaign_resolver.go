package service

import (
	"context"
	"errors"

	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCreateAttempts раундов insert/re-select при гонке автосоздания кампании
const maxCreateAttempts = 3

// CampaignResolver находит кампанию организатора по внешнему событию
// и создаёт её при первом упоминании
type CampaignResolver interface {
	Resolve(ctx context.Context, clientID, externalEventID, ticketURL string) (*models.Campaign, error)
}

type campaignResolver struct {
	organizerRepo repository.OrganizerRepository
	campaignRepo  repository.CampaignRepository
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func NewCampaignResolver(
	organizerRepo repository.OrganizerRepository,
	campaignRepo repository.CampaignRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) CampaignResolver {
	return &campaignResolver{
		organizerRepo: organizerRepo,
		campaignRepo:  campaignRepo,
		metrics:       m,
		logger:        logger,
	}
}

func (r *campaignResolver) Resolve(ctx context.Context, clientID, externalEventID, ticketURL string) (*models.Campaign, error) {
	organizer, err := r.organizerRepo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizerNotFound) {
			r.logger.Warn("Webhook for unknown client id", zap.String("client_id", clientID))
			return nil, ErrClientNotFound
		}
		return nil, processingError("lookup organizer", err)
	}

	defaults := organizer.Defaults()

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		campaign, err := r.campaignRepo.GetByExternalEventID(ctx, organizer.UserID, externalEventID)
		if err == nil {
			return campaign, nil
		}
		if !errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, processingError("lookup campaign", err)
		}

		// ticket_url становится destination новой кампании, для существующей он не нужен
		if !validateAbsoluteURL(ticketURL) {
			return nil, ErrInvalidTicketURL
		}

		campaign = newAutoCampaign(organizer.UserID, externalEventID, ticketURL, defaults)

		err = r.campaignRepo.Create(ctx, campaign)
		if err == nil {
			r.metrics.IncCampaignAutoCreated()
			r.logger.Info("Auto-created campaign for external event",
				zap.String("campaign_id", campaign.ID.String()),
				zap.String("external_event_id", externalEventID),
			)
			return campaign, nil
		}
		if !errors.Is(err, repository.ErrDuplicateMapping) {
			return nil, processingError("create campaign", err)
		}

		// параллельный запрос уже создал кампанию, перечитываем
		r.logger.Debug("Campaign auto-create race lost, re-selecting",
			zap.String("external_event_id", externalEventID),
			zap.Int("attempt", attempt),
		)
	}

	return nil, ErrCampaignCreateFailed
}

// newAutoCampaign активная кампания с настройками организатора по умолчанию
func newAutoCampaign(organizerID uuid.UUID, externalEventID, ticketURL string, d models.CampaignDefaults) *models.Campaign {
	eventID := externalEventID
	return &models.Campaign{
		ID:               uuid.New(),
		OrganizerID:      organizerID,
		Name:             externalEventID,
		ExternalEventID:  &eventID,
		DestinationURL:   ticketURL,
		Status:           models.CampaignStatusActive,
		CommissionType:   d.CommissionType,
		CommissionValue:  d.CommissionValue,
		CreditUnlockType: d.CreditUnlockType,
		CreditUnlockDays: d.CreditUnlockDays,
		RateLimitEnabled: true,
		RateLimitPerHour: models.DefaultRateLimitPerHour,
		IntegrationType:  models.IntegrationWebhookOrganization,
	}
}
